package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeviceClaims — идентичность устройства в device-токене (HS256, секрет устройств).
type DeviceClaims struct {
	DeviceID  string `json:"device_id"`
	AndroidID string `json:"android_id"`
	jwt.RegisteredClaims
}

// AdminClaims — идентичность администратора (HS256, отдельный секрет).
type AdminClaims struct {
	AdminID string `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// Secure Token Issuing
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Никогда не отправляем на фронт
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterDeviceRequest struct {
	DeviceName string `json:"device_name"`
	AndroidID  string `json:"android_id"`
}

// RegisterDeviceResponse — то, что устройство сохраняет после регистрации.
// Повторная регистрация с тем же android_id возвращает уже выданный токен.
type RegisterDeviceResponse struct {
	DeviceID      string `json:"device_id"`
	DeviceToken   string `json:"device_token"`
	PolicyVersion int    `json:"policy_version"`
}
