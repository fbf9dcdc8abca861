package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sajuking/sajuking-server/internal/llm"
	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/validation"
)

// maxChatHistory — сколько последних реплик истории уходит в модель.
const maxChatHistory = 20

const chatSystemPrompt = `당신은 "사주킹"의 친절한 AI 사주 상담사입니다.
사주명리학 관점에서 공감하며 구체적으로 조언하세요. 의료, 법률, 투자에 대한 확정적인 조언은 하지 마세요.`

// Chat отвечает на сообщение пользователя с учётом истории диалога.
// Сохранённые данные о рождении устройства добавляются в системную инструкцию.
func (s *Service) Chat(ctx context.Context, deviceID, message string, history []model.ChatTurn) (string, error) {
	message = strings.TrimSpace(message)
	if !validation.IsValidChatMessage(message) {
		return "", fmt.Errorf("%w: message", ErrInvalidInput)
	}

	c := s.cache(deviceID)
	system := chatSystemPrompt
	if info, ok := c.UserBirthInfo(ctx); ok {
		system += "\n\n상담자 정보:\n" + fortunePrompt(info, c.Today())
	}

	if len(history) > maxChatHistory {
		history = history[len(history)-maxChatHistory:]
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, turn := range history {
		text := strings.TrimSpace(turn.Content)
		if text == "" {
			continue
		}
		switch turn.Role {
		case model.ChatRoleUser:
			messages = append(messages, llm.Message{Role: llm.RoleUser, Text: text})
		case model.ChatRoleAssistant:
			messages = append(messages, llm.Message{Role: llm.RoleModel, Text: text})
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Text: message})

	reply, err := s.complete(ctx, "chat", llm.Request{System: system, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return reply, nil
}
