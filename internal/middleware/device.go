// Package middleware содержит HTTP middleware сервиса SajuKing.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const deviceIDKey contextKey = "deviceID"

const (
	deviceCookieName = "device_id"
	deviceCookieTTL  = 365 * 24 * time.Hour
)

// DeviceMiddleware определяет анонимное устройство по подписанному cookie.
// Устройству без cookie или с повреждённой подписью выдаётся новый идентификатор.
type DeviceMiddleware struct {
	secretKey []byte
}

// NewDeviceMiddleware создаёт DeviceMiddleware с указанным секретом подписи.
// Без секрета ключ генерируется случайно, и cookie живут до перезапуска процесса.
func NewDeviceMiddleware(secret string) *DeviceMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}

	return &DeviceMiddleware{
		secretKey: key,
	}
}

// Middleware добавляет идентификатор устройства в контекст запроса.
func (d *DeviceMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := ""
		if cookie, err := r.Cookie(deviceCookieName); err == nil {
			if id, ok := d.parseCookie(cookie.Value); ok {
				deviceID = id
			}
		}

		if deviceID == "" {
			deviceID = uuid.NewString()
			d.SetDeviceCookie(w, deviceID)
		}

		ctx := context.WithValue(r.Context(), deviceIDKey, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetDeviceCookie устанавливает подписанный cookie устройства.
func (d *DeviceMiddleware) SetDeviceCookie(w http.ResponseWriter, deviceID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     deviceCookieName,
		Value:    deviceID + "." + d.sign(deviceID),
		Path:     "/",
		Expires:  time.Now().Add(deviceCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (d *DeviceMiddleware) sign(deviceID string) string {
	mac := hmac.New(sha256.New, d.secretKey)
	mac.Write([]byte(deviceID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (d *DeviceMiddleware) parseCookie(value string) (string, bool) {
	id, signature, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}
	if !hmac.Equal([]byte(signature), []byte(d.sign(id))) {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// GetDeviceIDFromContext извлекает идентификатор устройства из контекста запроса.
func GetDeviceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deviceIDKey).(string)
	return id, ok && id != ""
}

// WithDeviceID возвращает контекст с идентификатором устройства.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey, deviceID)
}
