package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/sajuking/sajuking-server/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса SajuKing.
// metricsHandler публикуется на /metrics, если не nil.
func (h *Handler) SetupRouter(metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	// Возврат после перенаправления со страницы оплаты может прийти без cookie устройства.
	r.Get("/payment/complete", h.CompletePayment)

	r.Group(func(r chi.Router) {
		r.Use(h.deviceMiddleware.Middleware)

		r.Route("/api", func(r chi.Router) {
			r.Route("/fortune", func(r chi.Router) {
				r.Put("/birth-info", h.SaveBirthInfo)
				r.Get("/birth-info", h.GetBirthInfo)
				r.Delete("/birth-info", h.ClearBirthInfo)

				r.Get("/daily", h.GetDailyFortune)
				r.Delete("/daily", h.ClearDailyFortune)
			})

			r.Get("/payments/config", h.GetPaymentConfig)
			r.Post("/payments/verify", h.VerifyPayment)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders/{orderID}", h.GetOrder)

			r.Route("/worries", func(r chi.Router) {
				r.Post("/", h.CreateWorry)
				r.Get("/", h.ListWorries)
				r.Get("/{worryID}", h.GetWorry)
			})

			r.Group(func(r chi.Router) {
				for _, l := range h.chatLimiters {
					r.Use(l.Middleware)
				}
				r.Post("/chat", h.Chat)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
