package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/devguard/internal/domain"
)

// Tokens инкапсулирует подпись и проверку HS256 токенов.
// Секреты у устройств и админов разные: токены не взаимозаменяемы.
type Tokens struct {
	deviceSecret []byte
	adminSecret  []byte
	deviceTTL    time.Duration
	adminTTL     time.Duration
}

func NewTokens(deviceSecret, adminSecret string, deviceTTL, adminTTL time.Duration) *Tokens {
	return &Tokens{
		deviceSecret: []byte(deviceSecret),
		adminSecret:  []byte(adminSecret),
		deviceTTL:    deviceTTL,
		adminTTL:     adminTTL,
	}
}

// IssueDeviceToken выпускает долгоживущий токен устройства (выдается один раз при регистрации).
func (t *Tokens) IssueDeviceToken(deviceID, androidID string) (string, error) {
	now := time.Now()
	claims := &domain.DeviceClaims{
		DeviceID:  deviceID,
		AndroidID: androidID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "devguard",
			Subject:   deviceID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.deviceTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.deviceSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign device token: %w", err)
	}
	return signed, nil
}

// IssueAdminToken выпускает токен администратора после логина.
func (t *Tokens) IssueAdminToken(adminID, email string) (*domain.TokenResponse, error) {
	now := time.Now()
	expiresAt := now.Add(t.adminTTL)
	claims := &domain.AdminClaims{
		AdminID: adminID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "devguard",
			Subject:   adminID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.adminSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign admin token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}

// VerifyDeviceToken проверяет подпись и срок device-токена.
func (t *Tokens) VerifyDeviceToken(tokenStr string) (*domain.DeviceClaims, error) {
	claims := &domain.DeviceClaims{}
	if err := t.verify(tokenStr, claims, t.deviceSecret); err != nil {
		return nil, err
	}
	if claims.DeviceID == "" {
		return nil, fmt.Errorf("invalid claims: empty device_id")
	}
	return claims, nil
}

// VerifyAdminToken проверяет подпись и срок admin-токена.
func (t *Tokens) VerifyAdminToken(tokenStr string) (*domain.AdminClaims, error) {
	claims := &domain.AdminClaims{}
	if err := t.verify(tokenStr, claims, t.adminSecret); err != nil {
		return nil, err
	}
	if claims.AdminID == "" {
		return nil, fmt.Errorf("invalid claims: empty admin_id")
	}
	return claims, nil
}

func (t *Tokens) verify(tokenStr string, claims jwt.Claims, secret []byte) error {
	tokenStr = strings.TrimPrefix(tokenStr, "Bearer ")
	tokenStr = strings.TrimSpace(tokenStr)

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil || !token.Valid {
		return fmt.Errorf("invalid token: %w", err)
	}
	return nil
}
