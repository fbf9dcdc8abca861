package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sajuking/sajuking-server/internal/model"
)

// CreateWorry сохраняет запись сообщества и возвращает её идентификатор.
func (r *PostgresRepository) CreateWorry(ctx context.Context, w *model.Worry) (int64, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO worries (device_id, nickname, category, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		w.DeviceID, w.Nickname, w.Category, w.Content,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert worry: %w", err)
	}
	return w.ID, nil
}

// ListWorries возвращает записи сообщества, новые первыми. Пустая категория означает все категории.
func (r *PostgresRepository) ListWorries(ctx context.Context, category string, limit int) ([]model.Worry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, device_id, nickname, category, content, summary, view_count, created_at
		 FROM worries
		 WHERE $1 = '' OR category = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		category, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select worries: %w", err)
	}
	defer rows.Close()

	var res []model.Worry
	for rows.Next() {
		var w model.Worry
		if err := rows.Scan(&w.ID, &w.DeviceID, &w.Nickname, &w.Category, &w.Content, &w.Summary, &w.ViewCount, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan worry: %w", err)
		}
		res = append(res, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetWorryAndCountView увеличивает счётчик просмотров и возвращает запись.
func (r *PostgresRepository) GetWorryAndCountView(ctx context.Context, id int64) (*model.Worry, error) {
	var w model.Worry

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE worries SET view_count = view_count + 1
			 WHERE id = $1
			 RETURNING id, device_id, nickname, category, content, summary, view_count, created_at`,
			id,
		).Scan(&w.ID, &w.DeviceID, &w.Nickname, &w.Category, &w.Content, &w.Summary, &w.ViewCount, &w.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorryNotFound
		}
		return nil, fmt.Errorf("get worry: %w", err)
	}

	return &w, nil
}

// UpdateWorrySummary сохраняет сводку записи.
func (r *PostgresRepository) UpdateWorrySummary(ctx context.Context, id int64, summary string) error {
	err := r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE worries SET summary = $2 WHERE id = $1`,
			id, summary,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("update worry summary: %w", err)
	}
	return nil
}
