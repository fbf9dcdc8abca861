package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sajuking/sajuking-server/internal/fortune"
	"github.com/sajuking/sajuking-server/internal/llm"
	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/portone"
	"github.com/sajuking/sajuking-server/internal/repository"
	"github.com/sajuking/sajuking-server/internal/tasks"
)

type stubRepo struct {
	mu       sync.Mutex
	storages map[string]*fortune.MemoryStorage

	orders         map[string]*model.Order
	createOrderErr []error
	getOrderErr    error
	markPaidErr    error

	worries      map[int64]*model.Worry
	nextWorryID  int64
	listCategory string
	listLimit    int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		storages: make(map[string]*fortune.MemoryStorage),
		orders:   make(map[string]*model.Order),
		worries:  make(map[int64]*model.Worry),
	}
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) Storage(deviceID string) fortune.Storage {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.storages[deviceID]
	if !ok {
		st = fortune.NewMemoryStorage()
		s.storages[deviceID] = st
	}
	return st
}

func (s *stubRepo) CreateOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.createOrderErr) > 0 {
		err := s.createOrderErr[0]
		s.createOrderErr = s.createOrderErr[1:]
		return err
	}
	o.CreatedAt = time.Now()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *stubRepo) GetOrder(_ context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getOrderErr != nil {
		return nil, s.getOrderErr
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubRepo) MarkOrderPaid(_ context.Context, id, paymentID string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markPaidErr != nil {
		return s.markPaidErr
	}
	o := s.orders[id]
	if o.Status == model.OrderStatusPaid {
		return repository.ErrOrderAlreadyPaid
	}
	o.Status = model.OrderStatusPaid
	o.PaymentID = paymentID
	o.PaidAt = &paidAt
	o.FailureReason = ""
	return nil
}

func (s *stubRepo) MarkOrderFailed(_ context.Context, id, paymentID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	if o.Status == model.OrderStatusPaid {
		return nil
	}
	o.Status = model.OrderStatusFailed
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	o.FailureReason = reason
	return nil
}

func (s *stubRepo) SaveOrderAnalysis(_ context.Context, id, analysis string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id].Analysis = analysis
	return nil
}

func (s *stubRepo) CreateWorry(_ context.Context, w *model.Worry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWorryID++
	w.ID = s.nextWorryID
	w.CreatedAt = time.Now()
	cp := *w
	s.worries[w.ID] = &cp
	return w.ID, nil
}

func (s *stubRepo) ListWorries(_ context.Context, category string, limit int) ([]model.Worry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCategory = category
	s.listLimit = limit
	return nil, nil
}

func (s *stubRepo) GetWorryAndCountView(_ context.Context, id int64) (*model.Worry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.worries[id]
	if !ok {
		return nil, repository.ErrWorryNotFound
	}
	w.ViewCount++
	cp := *w
	return &cp, nil
}

func (s *stubRepo) UpdateWorrySummary(_ context.Context, id int64, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worries[id].Summary = &summary
	return nil
}

type stubPayments struct {
	payment *portone.Payment
	err     error
}

func (s *stubPayments) GetPayment(_ context.Context, paymentID string) (*portone.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := *s.payment
	p.ID = paymentID
	return &p, nil
}

type stubLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	requests []llm.Request

	started chan struct{}
	release chan struct{}
}

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.calls++
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func (s *stubLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubQueue struct {
	mu    sync.Mutex
	tasks []tasks.Task
	full  bool
}

func (s *stubQueue) Enqueue(t tasks.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.tasks = append(s.tasks, t)
	return true
}

type stubMetrics struct {
	mu            sync.Mutex
	hits, misses  int
	verifications []string
	dropped       []string
}

func (s *stubMetrics) RecordFortuneCache(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}

func (s *stubMetrics) RecordPaymentVerification(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifications = append(s.verifications, result)
}

func (s *stubMetrics) RecordLLMRequest(string, time.Duration, error) {}

func (s *stubMetrics) RecordTaskDropped(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped = append(s.dropped, kind)
}

type fixture struct {
	svc      *Service
	repo     *stubRepo
	payments *stubPayments
	llm      *stubLLM
	queue    *stubQueue
	metrics  *stubMetrics
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newStubRepo(),
		payments: &stubPayments{},
		llm:      &stubLLM{reply: `{"summary":"좋은 하루","score":80}`},
		queue:    &stubQueue{},
		metrics:  &stubMetrics{},
		now:      time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		Repo:         f.repo,
		Payments:     f.payments,
		LLM:          f.llm,
		Tasks:        f.queue,
		Metrics:      f.metrics,
		PortOne:      model.PortOneConfig{StoreID: "store-1", ChannelKey: "channel-1"},
		PremiumPrice: 9900,
		Now:          func() time.Time { return f.now },
	})
	return f
}

var errBoom = errors.New("boom")
