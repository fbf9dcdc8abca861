// Package metrics собирает метрики сервиса в формате Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder — интерфейс записи метрик, используемый сервисом.
type Recorder interface {
	RecordFortuneCache(hit bool)
	RecordPaymentVerification(result string)
	RecordLLMRequest(kind string, duration time.Duration, err error)
	RecordTaskDropped(kind string)
}

// Результаты проверки платежа.
const (
	VerificationPaid     = "paid"
	VerificationRejected = "rejected"
	VerificationError    = "error"
)

// Collector реализует Recorder поверх Prometheus.
type Collector struct {
	fortuneCache  *prometheus.CounterVec
	verifications *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	llmFailures   *prometheus.CounterVec
	tasksDropped  *prometheus.CounterVec
}

// NewCollector создаёт Collector и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fortuneCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sajuking_fortune_cache_total",
			Help: "Daily fortune cache lookups by result.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sajuking_payment_verifications_total",
			Help: "Payment verifications by outcome.",
		}, []string{"outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sajuking_llm_request_seconds",
			Help:    "LLM request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		llmFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sajuking_llm_failures_total",
			Help: "Failed LLM requests.",
		}, []string{"kind"}),
		tasksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sajuking_tasks_dropped_total",
			Help: "Background tasks rejected by a full queue.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.fortuneCache,
		c.verifications,
		c.llmLatency,
		c.llmFailures,
		c.tasksDropped,
	)

	return c
}

// RecordFortuneCache учитывает попадание или промах кэша гороскопа.
func (c *Collector) RecordFortuneCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.fortuneCache.WithLabelValues(result).Inc()
}

// RecordPaymentVerification учитывает исход проверки платежа.
func (c *Collector) RecordPaymentVerification(result string) {
	c.verifications.WithLabelValues(result).Inc()
}

// RecordLLMRequest учитывает длительность и исход запроса к модели.
func (c *Collector) RecordLLMRequest(kind string, duration time.Duration, err error) {
	c.llmLatency.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		c.llmFailures.WithLabelValues(kind).Inc()
	}
}

// RecordTaskDropped учитывает задачу, не поместившуюся в очередь.
// kind — тип задачи, а не её имя: метка не должна расти вместе с числом заказов.
func (c *Collector) RecordTaskDropped(kind string) {
	c.tasksDropped.WithLabelValues(kind).Inc()
}

// Handler возвращает HTTP-обработчик для сбора метрик.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop — Recorder, который ничего не записывает.
type Nop struct{}

func (Nop) RecordFortuneCache(bool) {}
func (Nop) RecordPaymentVerification(string) {}
func (Nop) RecordLLMRequest(string, time.Duration, error) {}
func (Nop) RecordTaskDropped(string) {}
