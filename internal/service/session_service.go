package service

import (
	"context"
	"docqa-go/internal/model"
	"docqa-go/internal/repository"
	"time"
)

// SessionService 定义了服务端会话历史的业务逻辑接口。
type SessionService interface {
	// History 以对话轮次的形式返回会话历史，供问答链使用。
	History(ctx context.Context, sessionID string) (model.ChatHistory, error)
	// Turns 返回带时间戳的原始记录。
	Turns(ctx context.Context, sessionID string) ([]model.SessionTurn, error)
	Append(ctx context.Context, sessionID string, turn model.ChatTurn) error
	Clear(ctx context.Context, sessionID string) error
}

type sessionService struct {
	repo repository.SessionRepository
}

// NewSessionService 创建一个新的 SessionService。
func NewSessionService(repo repository.SessionRepository) SessionService {
	return &sessionService{repo: repo}
}

func (s *sessionService) History(ctx context.Context, sessionID string) (model.ChatHistory, error) {
	turns, err := s.repo.GetTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := make(model.ChatHistory, 0, len(turns))
	for _, t := range turns {
		history = append(history, model.ChatTurn{User: t.User, Assistant: t.Assistant})
	}
	return history, nil
}

func (s *sessionService) Turns(ctx context.Context, sessionID string) ([]model.SessionTurn, error) {
	return s.repo.GetTurns(ctx, sessionID)
}

func (s *sessionService) Append(ctx context.Context, sessionID string, turn model.ChatTurn) error {
	return s.repo.AppendTurn(ctx, sessionID, model.SessionTurn{
		User:       turn.User,
		Assistant:  turn.Assistant,
		RecordedAt: model.LocalTime(time.Now()),
	})
}

func (s *sessionService) Clear(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}
