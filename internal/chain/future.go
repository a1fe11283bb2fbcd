package chain

import (
	"context"
	"docqa-go/internal/model"
	"sync"
)

// DocumentFuture 是一次性结果槽：检索完成回调 Resolve，请求处理方 Await。
// 只有第一次 Resolve 生效。
type DocumentFuture struct {
	once sync.Once
	done chan struct{}
	docs []model.ScoredDocument
}

// NewDocumentFuture 创建一个未完成的 future。
func NewDocumentFuture() *DocumentFuture {
	return &DocumentFuture{done: make(chan struct{})}
}

// Resolve 写入检索结果，返回本次调用是否生效。
func (f *DocumentFuture) Resolve(docs []model.ScoredDocument) bool {
	resolved := false
	f.once.Do(func() {
		f.docs = docs
		close(f.done)
		resolved = true
	})
	return resolved
}

// Await 阻塞直到 future 完成或 ctx 结束。可重复调用。
func (f *DocumentFuture) Await(ctx context.Context) ([]model.ScoredDocument, error) {
	select {
	case <-f.done:
		return f.docs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
