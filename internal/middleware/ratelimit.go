package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const limiterCleanupInterval = 5 * time.Minute

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// KeyFunc определяет, чей бюджет запросов расходует запрос.
type KeyFunc func(r *http.Request) (string, bool)

// DeviceKey — ключ по идентификатору устройства из контекста.
func DeviceKey(r *http.Request) (string, bool) {
	return GetDeviceIDFromContext(r.Context())
}

// ClientAddrKey — ключ по адресу клиента. За обратным прокси
// перед ним должен стоять chi middleware.RealIP.
func ClientAddrKey(r *http.Request) (string, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host, host != ""
}

// RateLimiterOption настраивает RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithKeyFunc задаёт ключ ограничителя. По умолчанию — DeviceKey.
func WithKeyFunc(key KeyFunc) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.key = key
	}
}

// RateLimiter ограничивает частоту запросов каждого клиента.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	key    KeyFunc
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter создаёт ограничитель на perMinute запросов в минуту с клиента
// и запускает фоновую очистку неактивных клиентов. Остановить её можно через Stop.
func NewRateLimiter(perMinute int, logger *zap.Logger, opts ...RateLimiterOption) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	rl := &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		key:      DeviceKey,
		logger:   logger,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rl)
	}

	go rl.cleanupLoop()

	return rl
}

// Stop останавливает фоновую очистку.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware отвечает 429 с заголовком Retry-After, если клиент превысил лимит.
// С DeviceKey должен стоять после DeviceMiddleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := rl.key(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if !rl.limiterFor(key).Allow() {
			rl.logger.Warn("rate limit exceeded", zap.String("key", key))
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// retryAfter возвращает число секунд до пополнения одного токена.
func (rl *RateLimiter) retryAfter() int {
	sec := int(math.Ceil(1 / float64(rl.limit)))
	if sec < 1 {
		sec = 1
	}
	return sec
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	dl, ok := rl.limiters[key]
	if !ok {
		dl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = dl
	}
	dl.lastAccess = time.Now()
	return dl.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup удаляет клиентов, неактивных дольше двух интервалов очистки.
func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for id, dl := range rl.limiters {
		if now.Sub(dl.lastAccess) > 2*limiterCleanupInterval {
			delete(rl.limiters, id)
		}
	}
}
