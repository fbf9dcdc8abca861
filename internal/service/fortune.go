package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/sajuking/sajuking-server/internal/fortune"
	"github.com/sajuking/sajuking-server/internal/llm"
	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/validation"
)

const fortuneSystemPrompt = `당신은 한국 전통 사주명리학 전문가입니다.
사용자의 이름, 생년월일, 년주를 바탕으로 오늘의 운세를 작성하세요.
반드시 다음 JSON 형식으로만 답하세요:
{"summary": string, "score": number(0-100), "love": string, "money": string, "health": string, "work": string, "luckyColor": string, "luckyNumber": number, "advice": string}`

var errInvalidFortune = errors.New("generate fortune: model returned invalid JSON")

// SaveBirthInfo сохраняет имя и дату рождения устройства.
func (s *Service) SaveBirthInfo(ctx context.Context, deviceID, name, birthDate string) error {
	name = validation.SanitizeText(name)
	if !validation.IsValidName(name) {
		return fmt.Errorf("%w: name", ErrInvalidInput)
	}
	if !validation.IsValidBirthDate(birthDate, s.now()) {
		return ErrInvalidBirthDate
	}
	return s.cache(deviceID).SaveUserBirthInfo(ctx, name, birthDate)
}

// BirthInfo возвращает сохранённые данные о рождении устройства.
func (s *Service) BirthInfo(ctx context.Context, deviceID string) (*model.UserBirthInfo, bool) {
	return s.cache(deviceID).UserBirthInfo(ctx)
}

// ClearBirthInfo удаляет данные о рождении вместе с гороскопом.
func (s *Service) ClearBirthInfo(ctx context.Context, deviceID string) error {
	return s.cache(deviceID).ClearUserBirthInfo(ctx)
}

// ClearDailyFortune удаляет закэшированный гороскоп, не трогая данные о рождении.
func (s *Service) ClearDailyFortune(ctx context.Context, deviceID string) error {
	return s.cache(deviceID).ClearFortuneCache(ctx)
}

// DailyFortune возвращает гороскоп на сегодня: из кэша, если он есть, иначе генерирует новый.
// Одновременные запросы одного устройства генерируют гороскоп один раз.
func (s *Service) DailyFortune(ctx context.Context, deviceID string) (*model.DailyFortune, error) {
	c := s.cache(deviceID)

	if cached, ok := c.CachedFortune(ctx); ok {
		s.metrics.RecordFortuneCache(true)
		return &model.DailyFortune{
			Date:     cached.Date,
			Data:     cached.Data,
			CachedAt: cached.CachedAt,
			Cached:   true,
		}, nil
	}
	s.metrics.RecordFortuneCache(false)

	info, ok := c.UserBirthInfo(ctx)
	if !ok {
		return nil, ErrBirthInfoRequired
	}

	today := c.Today()
	v, err, _ := s.fortunes.Do(deviceID+"/"+today, func() (any, error) {
		return s.generateFortune(ctx, c, info, today)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.DailyFortune), nil
}

func (s *Service) generateFortune(ctx context.Context, c *fortune.Cache, info *model.UserBirthInfo, today string) (*model.DailyFortune, error) {
	text, err := s.complete(ctx, "fortune", llm.Request{
		System:   fortuneSystemPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Text: fortunePrompt(info, today)}},
		JSON:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate fortune: %w", err)
	}

	data := json.RawMessage(text)
	if !json.Valid(data) {
		return nil, errInvalidFortune
	}

	if err := c.CacheDailyFortune(ctx, data); err != nil {
		s.logger.Warn("cache daily fortune", zap.Error(err))
	}

	return &model.DailyFortune{
		Date:     today,
		Data:     data,
		CachedAt: s.now(),
		Cached:   false,
	}, nil
}

func fortunePrompt(info *model.UserBirthInfo, today string) string {
	prompt := fmt.Sprintf("이름: %s\n생년월일: %s\n오늘 날짜: %s", info.Name, info.BirthDate, today)
	bd, ok := fortune.ParseBirthDate(info.BirthDate)
	if !ok {
		return prompt
	}
	if year, err := strconv.Atoi(bd.Year); err == nil {
		stem, branch := fortune.YearPillar(year)
		prompt += fmt.Sprintf("\n년주: %s%s", stem, branch)
	}
	return prompt
}
