// Package model содержит доменные сущности сервиса SajuKing.
package model

import (
	"encoding/json"
	"time"
)

// UserBirthInfo хранит имя и дату рождения, сохранённые на устройстве пользователя.
type UserBirthInfo struct {
	Name      string    `json:"name"`
	BirthDate string    `json:"birthDate"`
	SavedAt   time.Time `json:"savedAt"`
}

// CachedFortune описывает закэшированный гороскоп на конкретный день.
type CachedFortune struct {
	Date     string          `json:"date"`
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cachedAt"`
}

// DailyFortune — ответ API гороскопа на сегодня.
type DailyFortune struct {
	Date     string          `json:"date"`
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cachedAt"`
	Cached   bool            `json:"cached"`
}

// PortOneConfig содержит идентификаторы магазина и канала платёжного провайдера.
type PortOneConfig struct {
	StoreID    string `json:"storeId"`
	ChannelKey string `json:"channelKey"`
}

// PaymentRequest описывает одну попытку оплаты заказа. Сумма указывается в вонах.
type PaymentRequest struct {
	OrderID       string
	OrderNumber   string
	OrderName     string
	Amount        int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// PaymentResult — итог попытки оплаты: либо успех с номером заказа, либо ошибка.
type PaymentResult struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Error       string `json:"error,omitempty"`

	// Err содержит классифицированную причину неудачи.
	Err error `json:"-"`
}

// VerificationResult — ответ сервера на запрос проверки платежа.
type VerificationResult struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Error       string `json:"error,omitempty"`
}

// PaymentCompletion — состояние заказа после возврата пользователя со страницы оплаты.
type PaymentCompletion struct {
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
	Success     bool        `json:"success"`
	Message     string      `json:"message,omitempty"`
}

// OrderStatus описывает статус оплаты заказа.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusFailed  OrderStatus = "FAILED"
)

// Customer содержит контактные данные покупателя.
type Customer struct {
	Name  string `json:"customerName"`
	Email string `json:"customerEmail"`
	Phone string `json:"customerPhone"`
}

// Order описывает заказ платного анализа.
type Order struct {
	ID            string
	Number        string
	DeviceID      string
	Product       string
	Amount        int64
	Customer      Customer
	Status        OrderStatus
	PaymentID     string
	FailureReason string
	Analysis      string
	CreatedAt     time.Time
	PaidAt        *time.Time
}

// Worry описывает запись сообщества «беспокойств» пользователей.
type Worry struct {
	ID        int64
	DeviceID  string
	Nickname  string
	Category  string
	Content   string
	Summary   *string
	ViewCount int64
	CreatedAt time.Time
}

// ChatTurn — одна реплика в истории AI-консультации.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Роли реплик чата.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)
