package auth

import (
	"context"
	"net/http"

	"github.com/xela07ax/devguard/internal/domain"
	"go.uber.org/zap"
)

// Тип для ключей в контексте (избегаем коллизий)
type ctxKey string

const (
	deviceIDKey ctxKey = "device_id"
	adminIDKey  ctxKey = "admin_id"
)

// DeviceVerifier / AdminVerifier — что middleware нужно от проверки токенов
type DeviceVerifier interface {
	VerifyDeviceToken(tokenStr string) (*domain.DeviceClaims, error)
}

type AdminVerifier interface {
	VerifyAdminToken(tokenStr string) (*domain.AdminClaims, error)
}

// DeviceMiddleware пропускает только запросы с валидным device-токеном
// и прокидывает device_id в контекст. Дальше по коду идентичность берется
// только из контекста, никакого глобального состояния.
func DeviceMiddleware(v DeviceVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyDeviceToken(authHeader)
			if err != nil {
				logger.Warn("device auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), deviceIDKey, claims.DeviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware — то же самое для админского периметра.
func AdminMiddleware(v AdminVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyAdminToken(authHeader)
			if err != nil {
				logger.Warn("admin auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), adminIDKey, claims.AdminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DeviceIDFromContext безопасно достает идентичность устройства.
func DeviceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deviceIDKey).(string)
	return id, ok && id != ""
}

// AdminIDFromContext безопасно достает идентичность администратора.
func AdminIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(adminIDKey).(string)
	return id, ok && id != ""
}

// WithDeviceID / WithAdminID нужны тестам хендлеров, чтобы собрать контекст
// без прохода через middleware.
func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deviceIDKey, id)
}

func WithAdminID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, adminIDKey, id)
}
