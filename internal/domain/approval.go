package domain

import (
	"errors"
	"time"
)

// Статусы State Machine
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusDenied   ApprovalStatus = "denied"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidStatus   = errors.New("status must be 'approved' or 'denied'")
	ErrAlreadyResolved = errors.New("approval request already resolved")
	ErrValidation      = errors.New("validation failed")
)

// ApprovalRequest — заявка устройства на изменение политики.
// Машина состояний одноразовая: pending -> {approved, denied}, оба терминальные.
// TargetData непрозрачен для жизненного цикла, его интерпретирует только устройство.
type ApprovalRequest struct {
	ID          string         `json:"id"`
	DeviceID    string         `json:"device_id"`
	RequestType string         `json:"request_type"` // Например "unblock_app", "whitelist_url"
	TargetData  map[string]any `json:"target_data"`
	Notes       *string        `json:"notes,omitempty"`
	Status      ApprovalStatus `json:"status"`

	// Кулдаун вычисляется один раз при создании и больше не пересчитывается
	CooldownUntil time.Time  `json:"cooldown_until"`
	RequestedAt   time.Time  `json:"requested_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// CanApply — заявка готова к применению на устройстве:
// одобрена И период охлаждения истек. Нулевой CooldownUntil трактуем
// как "никогда не истек" (защитный дефолт, submit всегда его проставляет).
func (a *ApprovalRequest) CanApply(now time.Time) bool {
	if a.Status != StatusApproved {
		return false
	}
	if a.CooldownUntil.IsZero() {
		return false
	}
	return !now.Before(a.CooldownUntil)
}

// ValidateResolution проверяет входной статус решения админа
// до похода в базу, чтобы невалидный вызов гарантированно ничего не менял.
func ValidateResolution(status ApprovalStatus) error {
	if status != StatusApproved && status != StatusDenied {
		return ErrInvalidStatus
	}
	return nil
}

// PendingRequest — строка очереди решений для админки (join с именем устройства).
type PendingRequest struct {
	ApprovalRequest
	DeviceName string `json:"device_name"`
}
