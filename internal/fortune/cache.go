// Package fortune реализует кэш ежедневного гороскопа и хранение данных о рождении на устройстве.
package fortune

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sajuking/sajuking-server/internal/model"
)

// kstOffset — фиксированное смещение корейского времени относительно UTC.
const kstOffset = 9 * time.Hour

// Keys задаёт имена ключей хранилища.
type Keys struct {
	BirthInfo string
	Fortune   string
}

// DefaultKeys — ключи, используемые по умолчанию.
var DefaultKeys = Keys{
	BirthInfo: "user_birth_info",
	Fortune:   "daily_fortune_cache",
}

// Cache хранит данные о рождении и не более одного гороскопа на календарный день.
type Cache struct {
	storage Storage
	keys    Keys
	now     func() time.Time
}

// Option настраивает Cache.
type Option func(*Cache)

// WithKeys переопределяет имена ключей хранилища.
func WithKeys(keys Keys) Option {
	return func(c *Cache) {
		c.keys = keys
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache создаёт кэш поверх указанного хранилища.
func NewCache(storage Storage, opts ...Option) *Cache {
	c := &Cache{
		storage: storage,
		keys:    DefaultKeys,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Today возвращает текущую дату по корейскому времени в формате YYYY-MM-DD.
func (c *Cache) Today() string {
	return Today(c.now())
}

// Today переводит момент времени в дату по UTC+9.
func Today(t time.Time) string {
	return t.UTC().Add(kstOffset).Format(time.DateOnly)
}

// SaveUserBirthInfo сохраняет имя и дату рождения, перезаписывая прежнее значение.
func (c *Cache) SaveUserBirthInfo(ctx context.Context, name, birthDate string) error {
	info := model.UserBirthInfo{
		Name:      name,
		BirthDate: birthDate,
		SavedAt:   c.now(),
	}

	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal birth info: %w", err)
	}

	if err := c.storage.Set(ctx, c.keys.BirthInfo, string(raw)); err != nil {
		return fmt.Errorf("save birth info: %w", err)
	}
	return nil
}

// UserBirthInfo возвращает сохранённые данные о рождении.
// Отсутствующее или повреждённое значение трактуется как отсутствие данных.
func (c *Cache) UserBirthInfo(ctx context.Context) (*model.UserBirthInfo, bool) {
	raw, ok, err := c.storage.Get(ctx, c.keys.BirthInfo)
	if err != nil || !ok {
		return nil, false
	}

	var info model.UserBirthInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, false
	}
	return &info, true
}

// ClearUserBirthInfo удаляет данные о рождении вместе с закэшированным гороскопом.
func (c *Cache) ClearUserBirthInfo(ctx context.Context) error {
	if err := c.storage.Remove(ctx, c.keys.BirthInfo); err != nil {
		return fmt.Errorf("remove birth info: %w", err)
	}
	return c.ClearFortuneCache(ctx)
}

// CacheDailyFortune сохраняет гороскоп на сегодня. Последняя запись побеждает.
func (c *Cache) CacheDailyFortune(ctx context.Context, data json.RawMessage) error {
	now := c.now()
	entry := model.CachedFortune{
		Date:     Today(now),
		Data:     data,
		CachedAt: now,
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal fortune: %w", err)
	}

	if err := c.storage.Set(ctx, c.keys.Fortune, string(raw)); err != nil {
		return fmt.Errorf("save fortune: %w", err)
	}
	return nil
}

// CachedFortune возвращает гороскоп, если он закэширован сегодня.
// Запись за другой день удаляется при чтении.
func (c *Cache) CachedFortune(ctx context.Context) (*model.CachedFortune, bool) {
	raw, ok, err := c.storage.Get(ctx, c.keys.Fortune)
	if err != nil || !ok {
		return nil, false
	}

	var entry model.CachedFortune
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false
	}

	if entry.Date != c.Today() {
		_ = c.storage.Remove(ctx, c.keys.Fortune)
		return nil, false
	}

	return &entry, true
}

// ClearFortuneCache удаляет только закэшированный гороскоп.
func (c *Cache) ClearFortuneCache(ctx context.Context) error {
	if err := c.storage.Remove(ctx, c.keys.Fortune); err != nil {
		return fmt.Errorf("remove fortune: %w", err)
	}
	return nil
}
