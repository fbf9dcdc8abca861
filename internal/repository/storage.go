package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sajuking/sajuking-server/internal/fortune"
)

// DeviceStorage — хранилище «ключ-значение» одного устройства в таблице device_storage.
type DeviceStorage struct {
	repo     *PostgresRepository
	deviceID string
}

// Storage возвращает хранилище, ограниченное указанным устройством.
func (r *PostgresRepository) Storage(deviceID string) fortune.Storage {
	return &DeviceStorage{repo: r, deviceID: deviceID}
}

// Get возвращает значение по ключу.
func (s *DeviceStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.repo.withRetry(ctx, func() error {
		return s.repo.pool.QueryRow(ctx,
			`SELECT value FROM device_storage WHERE device_id = $1 AND key = $2`,
			s.deviceID, key,
		).Scan(&value)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get device value: %w", err)
	}
	return value, true, nil
}

// Set сохраняет значение, перезаписывая предыдущее.
func (s *DeviceStorage) Set(ctx context.Context, key, value string) error {
	err := s.repo.withRetry(ctx, func() error {
		_, err := s.repo.pool.Exec(ctx,
			`INSERT INTO device_storage (device_id, key, value, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (device_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			s.deviceID, key, value,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("set device value: %w", err)
	}
	return nil
}

// Remove удаляет значение.
func (s *DeviceStorage) Remove(ctx context.Context, key string) error {
	err := s.repo.withRetry(ctx, func() error {
		_, err := s.repo.pool.Exec(ctx,
			`DELETE FROM device_storage WHERE device_id = $1 AND key = $2`,
			s.deviceID, key,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("remove device value: %w", err)
	}
	return nil
}
