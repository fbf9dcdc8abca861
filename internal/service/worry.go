package service

import (
	"context"
	"fmt"

	"github.com/sajuking/sajuking-server/internal/llm"
	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/tasks"
	"github.com/sajuking/sajuking-server/internal/validation"
)

// Размер страницы списка записей сообщества.
const (
	DefaultWorryLimit = 20
	MaxWorryLimit     = 100
)

const summarySystemPrompt = `다음 고민 글을 한 문장(50자 이내)으로 요약하세요. 요약문만 답하세요.`

// CreateWorry сохраняет запись сообщества и ставит в очередь генерацию её сводки.
func (s *Service) CreateWorry(ctx context.Context, deviceID, nickname, category, content string) (*model.Worry, error) {
	w := &model.Worry{
		DeviceID: deviceID,
		Nickname: validation.SanitizeText(nickname),
		Category: category,
		Content:  validation.SanitizeText(content),
	}
	if !validation.IsValidWorry(w.Nickname, w.Category, w.Content) {
		return nil, fmt.Errorf("%w: worry", ErrInvalidInput)
	}

	if _, err := s.repo.CreateWorry(ctx, w); err != nil {
		return nil, err
	}

	if s.llm != nil {
		s.enqueue(s.worrySummaryTask(w.ID, w.Content))
	}

	return w, nil
}

// ListWorries возвращает записи сообщества, новые первыми.
func (s *Service) ListWorries(ctx context.Context, category string, limit int) ([]model.Worry, error) {
	if category != "" && !validation.IsValidCategory(category) {
		return nil, fmt.Errorf("%w: category", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultWorryLimit
	}
	if limit > MaxWorryLimit {
		limit = MaxWorryLimit
	}
	return s.repo.ListWorries(ctx, category, limit)
}

// GetWorry возвращает запись и учитывает просмотр.
func (s *Service) GetWorry(ctx context.Context, id int64) (*model.Worry, error) {
	return s.repo.GetWorryAndCountView(ctx, id)
}

func (s *Service) worrySummaryTask(id int64, content string) tasks.Task {
	return tasks.Task{
		Kind: taskWorrySummary,
		Name: fmt.Sprintf("%s:%d", taskWorrySummary, id),
		Run: func(ctx context.Context) error {
			summary, err := s.complete(ctx, "summary", llm.Request{
				System:   summarySystemPrompt,
				Messages: []llm.Message{{Role: llm.RoleUser, Text: content}},
			})
			if err != nil {
				return fmt.Errorf("summarize worry %d: %w", id, err)
			}
			return s.repo.UpdateWorrySummary(ctx, id, validation.SanitizeText(summary))
		},
	}
}
