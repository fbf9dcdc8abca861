// Package portone предоставляет клиент REST API платёжного провайдера PortOne.
package portone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL — адрес REST API PortOne v2.
const DefaultBaseURL = "https://api.portone.io"

// ErrPaymentNotFound возвращается, если провайдер не знает платёж с таким идентификатором.
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentStatus — статус платежа на стороне провайдера.
type PaymentStatus string

const (
	PaymentStatusReady            PaymentStatus = "READY"
	PaymentStatusPending          PaymentStatus = "PENDING"
	PaymentStatusVirtualAccount   PaymentStatus = "VIRTUAL_ACCOUNT_ISSUED"
	PaymentStatusPaid             PaymentStatus = "PAID"
	PaymentStatusFailed           PaymentStatus = "FAILED"
	PaymentStatusPartialCancelled PaymentStatus = "PARTIAL_CANCELLED"
	PaymentStatusCancelled        PaymentStatus = "CANCELLED"
)

// Amount содержит суммы платежа в минимальных единицах валюты.
type Amount struct {
	Total     int64 `json:"total"`
	Paid      int64 `json:"paid"`
	Cancelled int64 `json:"cancelled"`
}

// Payment описывает платёж, как его видит провайдер.
type Payment struct {
	ID        string        `json:"id"`
	Status    PaymentStatus `json:"status"`
	OrderName string        `json:"orderName"`
	Currency  string        `json:"currency"`
	Amount    Amount        `json:"amount"`
	PaidAt    *time.Time    `json:"paidAt,omitempty"`
}

// Client инкапсулирует HTTP-взаимодействие с PortOne.
type Client struct {
	baseURL    string
	apiSecret  string
	httpClient *http.Client
}

// NewClient создаёт клиент PortOne с указанным секретом API.
func NewClient(baseURL, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetPayment запрашивает платёж по идентификатору.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil || c.apiSecret == "" {
		return nil, fmt.Errorf("portone client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	endpoint := fmt.Sprintf("%s/payments/%s", base, url.PathEscape(paymentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "PortOne "+c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPaymentNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &payment, nil
}
