// Package pipeline 定义了知识库文件的导入流程：提取、切分、向量化、索引。
package pipeline

import (
	"bytes"
	"context"
	"docqa-go/internal/model"
	"docqa-go/internal/repository"
	"docqa-go/pkg/log"
	"docqa-go/pkg/tasks"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const (
	ChunkSize    = 1000
	ChunkOverlap = 100

	embedBatchSize   = 4
	embedConcurrency = 4
)

// ObjectGetter 读取对象存储中的原始文件。
type ObjectGetter interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor 从原始文件中提取纯文本。
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// DocumentEmbedder 批量向量化文本。
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndexer 是向量库的写入接口。
type VectorIndexer interface {
	AddChunks(ctx context.Context, chunks []model.IndexedChunk) error
	DeleteByFile(ctx context.Context, fileMD5 string) error
}

// Processor 封装了文件处理的所有依赖和逻辑。
type Processor struct {
	objects   ObjectGetter
	extractor TextExtractor
	embedder  DocumentEmbedder
	indexer   VectorIndexer
	fileRepo  repository.KnowledgeFileRepository
	chunkRepo repository.ChunkRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	objects ObjectGetter,
	extractor TextExtractor,
	embedder DocumentEmbedder,
	indexer VectorIndexer,
	fileRepo repository.KnowledgeFileRepository,
	chunkRepo repository.ChunkRepository,
) *Processor {
	return &Processor{
		objects:   objects,
		extractor: extractor,
		embedder:  embedder,
		indexer:   indexer,
		fileRepo:  fileRepo,
		chunkRepo: chunkRepo,
	}
}

// Process 是文件处理的主函数。重复处理同一文件时先清理旧分块。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	err := p.process(ctx, task)
	if err != nil {
		if markErr := p.fileRepo.MarkFailed(task.FileMD5); markErr != nil {
			log.Warnf("[Processor] 标记文件失败状态出错 (file_md5=%s): %v", task.FileMD5, markErr)
		}
	}
	return err
}

func (p *Processor) process(ctx context.Context, task tasks.IngestTask) error {
	log.Infof("[Processor] 开始处理文件, FileMD5: %s, FileName: %s", task.FileMD5, task.FileName)

	// 1. 从对象存储下载文件
	object, err := p.objects.Get(ctx, task.ObjectKey)
	if err != nil {
		return fmt.Errorf("下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		return fmt.Errorf("读取对象流失败: %w", err)
	}
	if size == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		return errors.New("文件内容为空")
	}

	// 2. 提取文本
	textContent, err := p.extractor.ExtractText(ctx, bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		return fmt.Errorf("提取文本失败: %w", err)
	}
	if strings.TrimSpace(textContent) == "" {
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 3. 文本切块
	chunks := SplitText(textContent, ChunkSize, ChunkOverlap)
	log.Infof("[Processor] 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 4. 分块入库（幂等）
	if err := p.chunkRepo.DeleteByFileMD5(task.FileMD5); err != nil {
		log.Warnf("[Processor] 清理 document_chunks 旧记录失败 (file_md5=%s): %v", task.FileMD5, err)
	}
	if err := p.indexer.DeleteByFile(ctx, task.FileMD5); err != nil {
		log.Warnf("[Processor] 清理向量库旧分块失败 (file_md5=%s): %v", task.FileMD5, err)
	}
	records := make([]*model.DocumentChunk, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, &model.DocumentChunk{
			FileMD5:     task.FileMD5,
			ChunkID:     i,
			TextContent: chunk,
			Namespace:   task.Namespace,
		})
	}
	if err := p.chunkRepo.BatchCreate(records); err != nil {
		return fmt.Errorf("批量保存文本分块失败: %w", err)
	}

	// 5. 向量化
	vectors, err := p.embedAll(ctx, chunks)
	if err != nil {
		return err
	}

	// 6. 写入向量库
	indexed := make([]model.IndexedChunk, len(chunks))
	for i, chunk := range chunks {
		indexed[i] = model.IndexedChunk{
			ID:        fmt.Sprintf("%s_%d", task.FileMD5, i),
			Text:      chunk,
			Vector:    vectors[i],
			Namespace: task.Namespace,
			Metadata: map[string]any{
				"source":   task.FileName,
				"chunk":    i,
				"file_md5": task.FileMD5,
			},
		}
	}
	if err := p.indexer.AddChunks(ctx, indexed); err != nil {
		return fmt.Errorf("写入向量库失败: %w", err)
	}

	if err := p.fileRepo.MarkIndexed(task.FileMD5, len(chunks)); err != nil {
		log.Warnf("[Processor] 更新文件状态失败 (file_md5=%s): %v", task.FileMD5, err)
	}
	log.Infof("[Processor] 文件处理成功完成, FileMD5: %s, 分块: %d", task.FileMD5, len(chunks))
	return nil
}

// embedAll 按批并发向量化，返回的向量与 chunks 一一对应。
func (p *Processor) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			batch, err := p.embedder.EmbedDocuments(gctx, chunks[start:end])
			if err != nil {
				return fmt.Errorf("分块 %d-%d 向量化失败: %w", start, end-1, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("分块 %d-%d 向量数量不匹配: %d", start, end-1, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// SplitText 将长文本按指定大小和重叠进行切分，长度以 rune 计。
func SplitText(text string, chunkSize int, chunkOverlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 || chunkSize <= 0 {
		return nil
	}
	step := chunkSize - chunkOverlap
	if step <= 0 {
		// 重叠无效时退化为不重叠切分
		step = chunkSize
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
