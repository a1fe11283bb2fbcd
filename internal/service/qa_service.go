package service

import (
	"context"
	"docqa-go/internal/chain"
	"docqa-go/internal/model"
	"docqa-go/internal/prompt"
	"docqa-go/internal/repository"
	"docqa-go/pkg/llm"
	"docqa-go/pkg/log"
	"time"
)

// QAOptions 是问答链的运行参数。
type QAOptions struct {
	TopK                int
	AwaitTimeout        time.Duration
	CondenseTemperature float64
	AnswerTemperature   float64
}

// QAService 定义了问答操作的接口。
type QAService interface {
	// Ask 执行一次完整的对话式检索问答。
	Ask(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
	// StreamAsk 与 Ask 相同，但把回答分块写入 writer。
	StreamAsk(ctx context.Context, req model.ChatRequest, writer llm.MessageWriter) (*model.ChatResponse, error)
}

type qaService struct {
	chatModel chain.ChatModel
	embedder  chain.Embedder
	searcher  chain.Searcher
	templates prompt.TemplateSet
	opts      QAOptions
	sessions  SessionService
	exchanges repository.ExchangeRepository
}

// NewQAService 创建一个新的 QAService 实例。sessions 与 exchanges 可以为 nil。
func NewQAService(
	chatModel chain.ChatModel,
	embedder chain.Embedder,
	searcher chain.Searcher,
	templates prompt.TemplateSet,
	opts QAOptions,
	sessions SessionService,
	exchanges repository.ExchangeRepository,
) QAService {
	if opts.TopK <= 0 {
		opts.TopK = chain.DefaultTopK
	}
	if opts.AwaitTimeout <= 0 {
		opts.AwaitTimeout = 30 * time.Second
	}
	return &qaService{
		chatModel: chatModel,
		embedder:  embedder,
		searcher:  searcher,
		templates: templates,
		opts:      opts,
		sessions:  sessions,
		exchanges: exchanges,
	}
}

func (s *qaService) Ask(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	return s.run(ctx, req, func(c *chain.ConversationalRetrievalChain, in chain.Input) (chain.Result, error) {
		return c.Invoke(ctx, in)
	})
}

func (s *qaService) StreamAsk(ctx context.Context, req model.ChatRequest, writer llm.MessageWriter) (*model.ChatResponse, error) {
	return s.run(ctx, req, func(c *chain.ConversationalRetrievalChain, in chain.Input) (chain.Result, error) {
		return c.Stream(ctx, in, writer)
	})
}

type invokeFunc func(c *chain.ConversationalRetrievalChain, in chain.Input) (chain.Result, error)

// run 为每个请求组装一条新链，检索回调把带得分的文档交给 future。
func (s *qaService) run(ctx context.Context, req model.ChatRequest, invoke invokeFunc) (*model.ChatResponse, error) {
	question := model.SanitizeQuestion(req.Question)
	if question == "" {
		return nil, ErrValidation
	}

	history := req.History
	if len(history) == 0 && req.SessionID != "" && s.sessions != nil {
		stored, err := s.sessions.History(ctx, req.SessionID)
		if err != nil {
			log.Warnf("[QAService] 读取会话历史失败, sessionId: %s, err: %v", req.SessionID, err)
		} else {
			history = stored
		}
	}

	future := chain.NewDocumentFuture()
	qa := chain.New(
		chain.NewCondenser(s.chatModel, s.templates.Condense, s.opts.CondenseTemperature),
		chain.NewRetriever(s.embedder, s.searcher,
			chain.WithTopK(s.opts.TopK),
			chain.WithOnRetrieved(func(docs []model.ScoredDocument) { future.Resolve(docs) }),
		),
		chain.NewSynthesizer(s.chatModel, s.templates.Answer, s.opts.AnswerTemperature),
	)

	result, err := invoke(qa, chain.Input{Question: question, ChatHistory: history.String()})
	if err != nil {
		log.Errorf("[QAService] 问答链执行失败: %v", err)
		return nil, err
	}

	awaitCtx, cancel := context.WithTimeout(ctx, s.opts.AwaitTimeout)
	defer cancel()
	docs, err := future.Await(awaitCtx)
	if err != nil {
		return nil, &chain.UpstreamError{Stage: chain.StageAwait, Err: err}
	}

	logSourceDocuments(question, result.StandaloneQuestion, docs)

	resp := &model.ChatResponse{
		Text:            result.Answer,
		SourceDocuments: model.NewSourceDocuments(docs),
	}
	s.record(req.SessionID, question, result, docs)
	return resp, nil
}

func logSourceDocuments(question, standalone string, docs []model.ScoredDocument) {
	sources := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, map[string]interface{}{
			"source":   d.Metadata["source"],
			"accuracy": d.Score,
		})
	}
	log.Infow("source documents",
		"question", question,
		"standaloneQuestion", standalone,
		"count", len(docs),
		"sources", sources,
	)
}

// record 保存会话与审计记录。失败只记录日志，不影响已生成的回答。
func (s *qaService) record(sessionID, question string, result chain.Result, docs []model.ScoredDocument) {
	// 使用后台上下文，即使原始请求被取消也要保存成功生成的答案
	ctx := context.Background()
	if sessionID != "" && s.sessions != nil {
		if err := s.sessions.Append(ctx, sessionID, model.ChatTurn{User: question, Assistant: result.Answer}); err != nil {
			log.Errorf("Failed to save session history: %v", err)
		}
	}
	if s.exchanges != nil {
		record := &model.QAExchange{
			SessionID:          sessionID,
			Question:           question,
			StandaloneQuestion: result.StandaloneQuestion,
			Answer:             result.Answer,
			SourceCount:        len(docs),
		}
		if len(docs) > 0 {
			record.TopScore = docs[0].Score
		}
		if err := s.exchanges.Create(record); err != nil {
			log.Errorf("Failed to save qa exchange: %v", err)
		}
	}
}
