// Package handler содержит HTTP-обработчики API сервиса SajuKing.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sajuking/sajuking-server/internal/middleware"
	"github.com/sajuking/sajuking-server/internal/model"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	SaveBirthInfo(ctx context.Context, deviceID, name, birthDate string) error
	BirthInfo(ctx context.Context, deviceID string) (*model.UserBirthInfo, bool)
	ClearBirthInfo(ctx context.Context, deviceID string) error
	DailyFortune(ctx context.Context, deviceID string) (*model.DailyFortune, error)
	ClearDailyFortune(ctx context.Context, deviceID string) error

	PaymentConfig() (model.PortOneConfig, error)
	CreateOrder(ctx context.Context, deviceID string, customer model.Customer) (*model.Order, error)
	GetOrder(ctx context.Context, deviceID, orderID string) (*model.Order, error)
	VerifyPayment(ctx context.Context, paymentID, orderID string) (model.VerificationResult, error)
	CompletePayment(ctx context.Context, orderID, paymentID, code, message string) (*model.PaymentCompletion, error)

	CreateWorry(ctx context.Context, deviceID, nickname, category, content string) (*model.Worry, error)
	ListWorries(ctx context.Context, category string, limit int) ([]model.Worry, error)
	GetWorry(ctx context.Context, id int64) (*model.Worry, error)

	Chat(ctx context.Context, deviceID, message string, history []model.ChatTurn) (string, error)
}

// Handler реализует HTTP-обработчики API сервиса SajuKing.
type Handler struct {
	service          Service
	logger           *zap.Logger
	deviceMiddleware *middleware.DeviceMiddleware
	chatLimiters     []*middleware.RateLimiter
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// Запрос к чату проходит через все chatLimiters по порядку.
func NewHandler(s Service, logger *zap.Logger, device *middleware.DeviceMiddleware, chatLimiters ...*middleware.RateLimiter) *Handler {
	return &Handler{
		service:          s,
		logger:           logger,
		deviceMiddleware: device,
		chatLimiters:     chatLimiters,
	}
}

func (h *Handler) deviceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetDeviceIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return id, ok
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	h.logger.Error(op+" error", append([]zap.Field{zap.Error(err)}, fields...)...)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
