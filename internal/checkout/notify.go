package checkout

import (
	"context"

	"go.uber.org/zap"
)

// Notification — уведомление пользователя об итоге оплаты.
type Notification struct {
	OrderID     string
	OrderNumber string
	Success     bool
	Message     string
}

// Notifier показывает пользователю итог попытки оплаты.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc позволяет использовать функцию как Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify вызывает f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier пишет итоги оплаты в журнал.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier создаёт Notifier поверх zap.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify записывает итог оплаты.
func (n *LogNotifier) Notify(_ context.Context, note Notification) {
	if note.Success {
		n.logger.Info("payment completed",
			zap.String("orderID", note.OrderID),
			zap.String("orderNumber", note.OrderNumber),
		)
		return
	}
	n.logger.Warn("payment failed",
		zap.String("orderID", note.OrderID),
		zap.String("message", note.Message),
	)
}
