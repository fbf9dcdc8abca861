package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sajuking/sajuking-server/internal/model"
)

// Customer — контактные данные покупателя в запросе к SDK.
type Customer struct {
	FullName    string `json:"fullName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// WindowType задаёт способ показа окна оплаты.
type WindowType struct {
	PC     string `json:"pc,omitempty"`
	Mobile string `json:"mobile,omitempty"`
}

// Payload — запрос requestPayment к SDK.
type Payload struct {
	StoreID     string      `json:"storeId"`
	ChannelKey  string      `json:"channelKey"`
	PaymentID   string      `json:"paymentId"`
	OrderName   string      `json:"orderName"`
	TotalAmount int64       `json:"totalAmount"`
	Currency    string      `json:"currency"`
	PayMethod   string      `json:"payMethod"`
	Customer    Customer    `json:"customer"`
	WindowType  *WindowType `json:"windowType,omitempty"`
	RedirectURL string      `json:"redirectUrl,omitempty"`
}

// SDKResponse — ответ SDK. Непустой Code означает отмену или ошибку.
type SDKResponse struct {
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
}

// Gateway — платёжный интерфейс загруженного SDK.
type Gateway interface {
	RequestPayment(ctx context.Context, payload Payload) (*SDKResponse, error)
}

// GatewayFunc позволяет использовать функцию как Gateway.
type GatewayFunc func(ctx context.Context, payload Payload) (*SDKResponse, error)

// RequestPayment вызывает f.
func (f GatewayFunc) RequestPayment(ctx context.Context, payload Payload) (*SDKResponse, error) {
	return f(ctx, payload)
}

// ConfigFetcher получает конфигурацию магазина с сервера.
type ConfigFetcher interface {
	Config(ctx context.Context) (model.PortOneConfig, error)
}

// Verifier проверяет платёж на сервере.
type Verifier interface {
	Verify(ctx context.Context, paymentID, orderID string) (*model.VerificationResult, error)
}

type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) apiClient {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return apiClient{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HTTPConfigFetcher запрашивает GET /api/payments/config.
type HTTPConfigFetcher struct {
	apiClient
}

// NewHTTPConfigFetcher создаёт клиент конфигурации для сервера по указанному адресу.
func NewHTTPConfigFetcher(baseURL string) *HTTPConfigFetcher {
	return &HTTPConfigFetcher{apiClient: newAPIClient(baseURL)}
}

// Config возвращает storeId и channelKey. Ответ без любого из полей считается ошибкой.
func (c *HTTPConfigFetcher) Config(ctx context.Context) (model.PortOneConfig, error) {
	var cfg model.PortOneConfig

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/payments/config", nil)
	if err != nil {
		return cfg, fmt.Errorf("%w: create request: %v", ErrConfig, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cfg, fmt.Errorf("%w: do request: %v", ErrConfig, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cfg, fmt.Errorf("%w: unexpected status: %d", ErrConfig, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: decode response: %v", ErrConfig, err)
	}

	if cfg.StoreID == "" || cfg.ChannelKey == "" {
		return cfg, fmt.Errorf("%w: incomplete config", ErrConfig)
	}

	return cfg, nil
}

// HTTPVerifier запрашивает POST /api/payments/verify.
type HTTPVerifier struct {
	apiClient
}

// NewHTTPVerifier создаёт клиент проверки платежей.
func NewHTTPVerifier(baseURL string) *HTTPVerifier {
	return &HTTPVerifier{apiClient: newAPIClient(baseURL)}
}

type verifyRequest struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
}

// Verify отправляет идентификаторы платежа и заказа на сервер.
// Отказ сервера возвращается как результат с Success=false, а не как ошибка.
func (c *HTTPVerifier) Verify(ctx context.Context, paymentID, orderID string) (*model.VerificationResult, error) {
	body, err := json.Marshal(verifyRequest{PaymentID: paymentID, OrderID: orderID})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/payments/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var result model.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK && result.Success {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return &result, nil
}
