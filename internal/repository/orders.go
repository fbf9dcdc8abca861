package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sajuking/sajuking-server/internal/model"
)

// CreateOrder сохраняет новый заказ.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO orders (id, number, device_id, product, amount, customer_name, customer_email, customer_phone, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		o.ID, o.Number, o.DeviceID, o.Product, o.Amount,
		o.Customer.Name, o.Customer.Email, o.Customer.Phone, string(o.Status),
	).Scan(&o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrOrderNumberTaken, o.Number)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var (
		o             model.Order
		status        string
		paymentID     *string
		failureReason *string
		analysis      *string
	)

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, number, device_id, product, amount, customer_name, customer_email, customer_phone,
			        status, payment_id, failure_reason, analysis, created_at, paid_at
			 FROM orders
			 WHERE id = $1`,
			id,
		).Scan(
			&o.ID, &o.Number, &o.DeviceID, &o.Product, &o.Amount,
			&o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
			&status, &paymentID, &failureReason, &analysis, &o.CreatedAt, &o.PaidAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	o.Status = model.OrderStatus(status)
	o.PaymentID = deref(paymentID)
	o.FailureReason = deref(failureReason)
	o.Analysis = deref(analysis)

	return &o, nil
}

// MarkOrderPaid переводит заказ в статус PAID. Заказ после неудачной попытки можно оплатить повторно.
func (r *PostgresRepository) MarkOrderPaid(ctx context.Context, id, paymentID string, paidAt time.Time) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, payment_id = $3, paid_at = $4, failure_reason = NULL
		 WHERE id = $1 AND status <> $2`,
		id, string(model.OrderStatusPaid), paymentID, paidAt,
	)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderAlreadyPaid
	}
	return nil
}

// MarkOrderFailed фиксирует причину неудачной оплаты. Оплаченные заказы не меняются.
// Пустой paymentID не затирает ранее сохранённый.
func (r *PostgresRepository) MarkOrderFailed(ctx context.Context, id, paymentID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, payment_id = COALESCE(NULLIF($3, ''), payment_id), failure_reason = $4
		 WHERE id = $1 AND status <> $5`,
		id, string(model.OrderStatusFailed), paymentID, reason, string(model.OrderStatusPaid),
	)
	if err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	return nil
}

// SaveOrderAnalysis сохраняет текст платного анализа.
func (r *PostgresRepository) SaveOrderAnalysis(ctx context.Context, id, analysis string) error {
	err := r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE orders SET analysis = $2 WHERE id = $1`,
			id, analysis,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save order analysis: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
