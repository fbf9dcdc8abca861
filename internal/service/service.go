// Package service реализует бизнес-логику сервиса SajuKing.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sajuking/sajuking-server/internal/fortune"
	"github.com/sajuking/sajuking-server/internal/llm"
	"github.com/sajuking/sajuking-server/internal/metrics"
	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/portone"
	"github.com/sajuking/sajuking-server/internal/tasks"
)

var (
	// ErrBirthInfoRequired возвращается, если для операции нужны сохранённые данные о рождении.
	ErrBirthInfoRequired = errors.New("birth info required")
	// ErrInvalidBirthDate возвращается для некорректной даты рождения.
	ErrInvalidBirthDate = errors.New("invalid birth date")
	// ErrInvalidInput возвращается для некорректных пользовательских данных.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPaymentsNotConfigured возвращается, если не заданы идентификаторы PortOne.
	ErrPaymentsNotConfigured = errors.New("payments not configured")
	// ErrLLMUnavailable возвращается, если языковая модель не настроена.
	ErrLLMUnavailable = errors.New("llm unavailable")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Storage(deviceID string) fortune.Storage

	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	MarkOrderPaid(ctx context.Context, id, paymentID string, paidAt time.Time) error
	MarkOrderFailed(ctx context.Context, id, paymentID, reason string) error
	SaveOrderAnalysis(ctx context.Context, id, analysis string) error

	CreateWorry(ctx context.Context, w *model.Worry) (int64, error)
	ListWorries(ctx context.Context, category string, limit int) ([]model.Worry, error)
	GetWorryAndCountView(ctx context.Context, id int64) (*model.Worry, error)
	UpdateWorrySummary(ctx context.Context, id int64, summary string) error
}

// PaymentProvider возвращает платёж по идентификатору со стороны провайдера.
type PaymentProvider interface {
	GetPayment(ctx context.Context, paymentID string) (*portone.Payment, error)
}

// Enqueuer ставит фоновые задачи в очередь.
type Enqueuer interface {
	Enqueue(t tasks.Task) bool
}

// Deps содержит зависимости сервиса.
type Deps struct {
	Repo     Repository
	Payments PaymentProvider
	LLM      llm.Completer
	Tasks    Enqueuer
	Metrics  metrics.Recorder
	Logger   *zap.Logger

	PortOne      model.PortOneConfig
	PremiumPrice int64

	// Now подменяется в тестах.
	Now func() time.Time
}

// Service содержит бизнес-логику сервиса SajuKing.
type Service struct {
	repo     Repository
	payments PaymentProvider
	llm      llm.Completer
	tasks    Enqueuer
	metrics  metrics.Recorder
	logger   *zap.Logger

	portOne      model.PortOneConfig
	premiumPrice int64
	now          func() time.Time

	fortunes singleflight.Group
}

// NewService создаёт сервис с указанными зависимостями.
func NewService(d Deps) *Service {
	s := &Service{
		repo:         d.Repo,
		payments:     d.Payments,
		llm:          d.LLM,
		tasks:        d.Tasks,
		metrics:      d.Metrics,
		logger:       d.Logger,
		portOne:      d.PortOne,
		premiumPrice: d.PremiumPrice,
		now:          d.Now,
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) cache(deviceID string) *fortune.Cache {
	return fortune.NewCache(s.repo.Storage(deviceID), fortune.WithClock(s.now))
}

// Типы фоновых задач.
const (
	taskPremiumAnalysis = "premium-analysis"
	taskWorrySummary    = "worry-summary"
)

func (s *Service) enqueue(t tasks.Task) {
	if s.tasks == nil || !s.tasks.Enqueue(t) {
		s.metrics.RecordTaskDropped(t.Kind)
		s.logger.Warn("task dropped", zap.String("kind", t.Kind), zap.String("task", t.Name))
	}
}

func (s *Service) complete(ctx context.Context, kind string, req llm.Request) (string, error) {
	if s.llm == nil {
		return "", ErrLLMUnavailable
	}
	start := time.Now()
	text, err := s.llm.Complete(ctx, req)
	s.metrics.RecordLLMRequest(kind, time.Since(start), err)
	return text, err
}
