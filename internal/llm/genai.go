// Package llm предоставляет доступ к языковой модели для генерации гороскопов, сводок и ответов чата.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel — модель Gemini по умолчанию.
const DefaultModel = "gemini-2.0-flash"

// ErrEmptyResponse возвращается, если модель не вернула текст.
var ErrEmptyResponse = errors.New("llm returned empty response")

// Роли сообщений диалога.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message — реплика диалога.
type Message struct {
	Role string
	Text string
}

// Request — запрос на генерацию текста.
type Request struct {
	System   string
	Messages []Message
	// JSON требует от модели ответ в формате application/json.
	JSON bool
}

// Completer генерирует текст по запросу.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// GenAI генерирует текст через Google Gemini API.
type GenAI struct {
	client *genai.Client
	model  string
}

// Options задаёт параметры клиента Gemini.
type Options struct {
	APIKey string
	Model  string
	// BaseURL переопределяет адрес API (прокси, тесты).
	BaseURL string
}

// NewGenAI создаёт клиент Gemini.
func NewGenAI(ctx context.Context, opts Options) (*GenAI, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}

	return &GenAI{
		client: client,
		model:  opts.Model,
	}, nil
}

// Complete отправляет диалог в модель и возвращает текст ответа.
func (g *GenAI) Complete(ctx context.Context, req Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("empty conversation")
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Name возвращает имя модели.
func (g *GenAI) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}
