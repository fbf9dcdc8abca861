package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/repository"
	"github.com/sajuking/sajuking-server/internal/service"
)

type orderResponse struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"orderNumber"`
	Product       string `json:"product"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
	FailureReason string `json:"failureReason,omitempty"`
	Analysis      string `json:"analysis,omitempty"`
	CreatedAt     string `json:"createdAt"`
	PaidAt        string `json:"paidAt,omitempty"`
}

func newOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.Number,
		Product:       o.Product,
		Amount:        o.Amount,
		Status:        string(o.Status),
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		CustomerPhone: o.Customer.Phone,
		FailureReason: o.FailureReason,
		Analysis:      o.Analysis,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
	if o.PaidAt != nil {
		resp.PaidAt = o.PaidAt.Format(time.RFC3339)
	}
	return resp
}

// GetPaymentConfig возвращает публичные идентификаторы магазина PortOne.
func (h *Handler) GetPaymentConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.PaymentConfig()
	if err != nil {
		if errors.Is(err, service.ErrPaymentsNotConfigured) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		h.internalError(w, "payment config", err)
		return
	}

	h.writeJSON(w, http.StatusOK, cfg)
}

// CreateOrder создаёт заказ платного анализа.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	var req model.Customer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), deviceID, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.internalError(w, "create order", err, zap.String("device_id", deviceID))
		return
	}

	h.writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

// GetOrder возвращает заказ текущего устройства.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "orderID")
	order, err := h.service.GetOrder(r.Context(), deviceID, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.internalError(w, "get order", err, zap.String("order_id", orderID))
		return
	}

	h.writeJSON(w, http.StatusOK, newOrderResponse(order))
}

type verifyRequest struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
}

// VerifyPayment сверяет платёж с заказом. Тело ответа всегда имеет вид {success, orderNumber?, error?}.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, model.VerificationResult{Error: "invalid request body"})
		return
	}

	res, err := h.service.VerifyPayment(r.Context(), req.PaymentID, req.OrderID)
	if err != nil {
		h.logger.Error("verify payment error",
			zap.Error(err),
			zap.String("payment_id", req.PaymentID),
			zap.String("order_id", req.OrderID),
		)
		h.writeJSON(w, http.StatusInternalServerError, model.VerificationResult{Error: "payment verification unavailable"})
		return
	}

	if !res.Success {
		h.writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// CompletePayment — точка возврата пользователя после оплаты в режиме перенаправления.
func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderID := q.Get("orderId")
	if orderID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.CompletePayment(r.Context(), orderID, q.Get("paymentId"), q.Get("code"), q.Get("message"))
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.internalError(w, "complete payment", err, zap.String("order_id", orderID))
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}
