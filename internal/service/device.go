package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xela07ax/devguard/internal/domain"
	"go.uber.org/zap"
)

// DeviceRepository описывает требования сервиса к хранилищу устройств
type DeviceRepository interface {
	CreateDevice(ctx context.Context, d *domain.Device) error
	GetDeviceByAndroidID(ctx context.Context, androidID string) (*domain.Device, error)
	GetDevice(ctx context.Context, id string) (*domain.Device, error)
	ListDevices(ctx context.Context) ([]*domain.Device, error)
	TouchLastSeen(ctx context.Context, deviceID string) error
	GetSettings(ctx context.Context, deviceID string) (*domain.DeviceSettings, error)
	UpdateSettings(ctx context.Context, deviceID string, patch domain.SettingsPatch) (*domain.DeviceSettings, error)

	FindAppPolicies(ctx context.Context, deviceID string) ([]domain.AppPolicy, error)
	FindBlockedURLs(ctx context.Context, deviceID string) ([]domain.BlockedURL, error)
	FindAccessibilityPolicies(ctx context.Context, deviceID string) ([]domain.AccessibilityPolicy, error)
	FindViolations(ctx context.Context, deviceID string) ([]*domain.Violation, error)
}

// DeviceTokenIssuer — выпуск долгоживущих device-токенов
type DeviceTokenIssuer interface {
	IssueDeviceToken(deviceID, androidID string) (string, error)
}

// ViolationLogger — асинхронный прием нарушений (см. internal/violations)
type ViolationLogger interface {
	Log(event domain.Violation)
}

// PolicyNotifier — сигнал "политики изменились"
type PolicyNotifier interface {
	NotifyPolicyUpdate(ctx context.Context, deviceID string)
}

type DeviceService struct {
	repo     DeviceRepository
	tokens   DeviceTokenIssuer
	sink     ViolationLogger
	notifier PolicyNotifier
	logger   *zap.Logger
}

func NewDeviceService(repo DeviceRepository, tokens DeviceTokenIssuer, sink ViolationLogger, notifier PolicyNotifier, logger *zap.Logger) *DeviceService {
	return &DeviceService{
		repo:     repo,
		tokens:   tokens,
		sink:     sink,
		notifier: notifier,
		logger:   logger.Named("device-service"),
	}
}

// Register — идемпотентная регистрация по android_id: повторный вызов
// возвращает уже выданный токен, перевыпуска нет.
func (s *DeviceService) Register(ctx context.Context, deviceName, androidID string) (*domain.RegisterDeviceResponse, bool, error) {
	if deviceName == "" || androidID == "" {
		return nil, false, fmt.Errorf("%w: device_name and android_id required", domain.ErrValidation)
	}

	existing, err := s.repo.GetDeviceByAndroidID(ctx, androidID)
	if err != nil {
		return nil, false, fmt.Errorf("device lookup failed: %w", err)
	}
	if existing != nil {
		return &domain.RegisterDeviceResponse{
			DeviceID:      existing.ID,
			DeviceToken:   existing.DeviceToken,
			PolicyVersion: existing.PolicyVersion,
		}, false, nil
	}

	deviceID := uuid.New().String()
	token, err := s.tokens.IssueDeviceToken(deviceID, androidID)
	if err != nil {
		s.logger.Error("failed to issue device token", zap.Error(err))
		return nil, false, err
	}

	d := &domain.Device{
		ID:          deviceID,
		DeviceName:  deviceName,
		AndroidID:   androidID,
		DeviceToken: token,
	}
	if err := s.repo.CreateDevice(ctx, d); err != nil {
		s.logger.Error("failed to create device", zap.Error(err))
		return nil, false, err
	}

	s.logger.Info("device registered",
		zap.String("device_id", deviceID),
		zap.String("device_name", deviceName))

	return &domain.RegisterDeviceResponse{
		DeviceID:    deviceID,
		DeviceToken: token,
	}, true, nil
}

// GetPolicyBundle собирает полный снимок политик устройства одним вызовом
// и попутно обновляет last_seen (запрос политик — признак живого устройства).
func (s *DeviceService) GetPolicyBundle(ctx context.Context, deviceID string) (*domain.PolicyBundle, error) {
	device, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	apps, err := s.repo.FindAppPolicies(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	urls, err := s.repo.FindBlockedURLs(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	accessibility, err := s.repo.FindAccessibilityPolicies(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	settings, err := s.repo.GetSettings(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchLastSeen(ctx, deviceID); err != nil {
		// Не критично для выдачи политик
		s.logger.Warn("failed to touch last_seen", zap.String("device_id", deviceID), zap.Error(err))
	}

	return &domain.PolicyBundle{
		Apps:          apps,
		URLs:          urls,
		Accessibility: accessibility,
		Settings:      settings,
		PolicyVersion: device.PolicyVersion,
		IsRestricted:  device.IsRestricted,
	}, nil
}

func (s *DeviceService) Heartbeat(ctx context.Context, deviceID string) error {
	return s.repo.TouchLastSeen(ctx, deviceID)
}

// ReportViolation принимает одно нарушение в асинхронный буфер.
func (s *DeviceService) ReportViolation(ctx context.Context, deviceID, violationType string, details map[string]any) error {
	if violationType == "" {
		return fmt.Errorf("%w: violation_type is required", domain.ErrValidation)
	}
	s.sink.Log(domain.Violation{
		ID:            uuid.New().String(),
		DeviceID:      deviceID,
		ViolationType: violationType,
		Details:       details,
	})
	return nil
}

// ReportViolationsBatch — пакетный прием (устройство доносит очередь после оффлайна).
func (s *DeviceService) ReportViolationsBatch(ctx context.Context, deviceID string, events []domain.Violation) error {
	for _, e := range events {
		if e.ViolationType == "" {
			return fmt.Errorf("%w: violation_type is required for every entry", domain.ErrValidation)
		}
	}
	for _, e := range events {
		e.ID = uuid.New().String()
		e.DeviceID = deviceID
		s.sink.Log(e)
	}
	return nil
}

// ListDevices возвращает весь флот для админки.
func (s *DeviceService) ListDevices(ctx context.Context) ([]*domain.Device, error) {
	devices, err := s.repo.ListDevices(ctx)
	if err != nil {
		s.logger.Error("failed to list devices", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch devices: %w", err)
	}
	return devices, nil
}

func (s *DeviceService) ListViolations(ctx context.Context, deviceID string) ([]*domain.Violation, error) {
	return s.repo.FindViolations(ctx, deviceID)
}

// UpdateSettings — частичное обновление настроек админом.
// После записи шлем policy-update: устройство перечитает конфигурацию.
// Уже поданные заявки сохраняют свой cooldown_until (он зафиксирован при submit).
func (s *DeviceService) UpdateSettings(ctx context.Context, deviceID string, patch domain.SettingsPatch) (*domain.DeviceSettings, error) {
	if patch.CooldownHours != nil && *patch.CooldownHours <= 0 {
		return nil, fmt.Errorf("%w: cooldown_hours must be positive", domain.ErrValidation)
	}

	settings, err := s.repo.UpdateSettings(ctx, deviceID, patch)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyPolicyUpdate(ctx, deviceID)

	s.logger.Info("device settings updated",
		zap.String("device_id", deviceID),
		zap.Int("cooldown_hours", settings.CooldownHours))
	return settings, nil
}
