package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xela07ax/devguard/internal/domain"
	"go.uber.org/zap"
)

// PolicyRepository описывает требования сервиса к хранилищу политик
type PolicyRepository interface {
	UpsertAppPolicy(ctx context.Context, p *domain.AppPolicy) (*domain.AppPolicy, error)
	FindInstalledApps(ctx context.Context, deviceID string) ([]domain.InstalledApp, error)
	AddBlockedURL(ctx context.Context, u *domain.BlockedURL) (*domain.BlockedURL, error)
	RemoveBlockedURL(ctx context.Context, id string) error
	FindBlockedURLs(ctx context.Context, deviceID string) ([]domain.BlockedURL, error)
}

type PolicyService struct {
	repo     PolicyRepository
	notifier PolicyNotifier
	logger   *zap.Logger
}

func NewPolicyService(repo PolicyRepository, notifier PolicyNotifier, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		repo:     repo,
		notifier: notifier,
		logger:   logger.Named("policy-service"),
	}
}

// SetAppPolicy сохраняет политику приложения и уведомляет устройство.
func (s *PolicyService) SetAppPolicy(ctx context.Context, p *domain.AppPolicy) (*domain.AppPolicy, error) {
	if p.DeviceID == "" || p.PackageName == "" {
		return nil, fmt.Errorf("%w: device_id and package_name required", domain.ErrValidation)
	}

	out, err := s.repo.UpsertAppPolicy(ctx, p)
	if err != nil {
		s.logger.Error("failed to upsert app policy",
			zap.String("device_id", p.DeviceID),
			zap.String("package", p.PackageName),
			zap.Error(err))
		return nil, err
	}

	s.notifier.NotifyPolicyUpdate(ctx, p.DeviceID)
	return out, nil
}

func (s *PolicyService) ListInstalledApps(ctx context.Context, deviceID string) ([]domain.InstalledApp, error) {
	return s.repo.FindInstalledApps(ctx, deviceID)
}

// AddBlockedURL добавляет паттерн в черный список и уведомляет устройство.
func (s *PolicyService) AddBlockedURL(ctx context.Context, deviceID, pattern, description string) (*domain.BlockedURL, error) {
	if deviceID == "" || pattern == "" {
		return nil, fmt.Errorf("%w: device_id and url_pattern required", domain.ErrValidation)
	}

	out, err := s.repo.AddBlockedURL(ctx, &domain.BlockedURL{
		ID:          uuid.New().String(),
		DeviceID:    deviceID,
		URLPattern:  pattern,
		Description: description,
	})
	if err != nil {
		s.logger.Error("failed to add blocked url", zap.Error(err))
		return nil, err
	}

	s.notifier.NotifyPolicyUpdate(ctx, deviceID)
	return out, nil
}

func (s *PolicyService) RemoveBlockedURL(ctx context.Context, id string) error {
	if err := s.repo.RemoveBlockedURL(ctx, id); err != nil {
		return err
	}
	// ID устройства здесь неизвестен — шлем широковещательный сигнал
	s.notifier.NotifyPolicyUpdate(ctx, "*")
	return nil
}

func (s *PolicyService) ListBlockedURLs(ctx context.Context, deviceID string) ([]domain.BlockedURL, error) {
	return s.repo.FindBlockedURLs(ctx, deviceID)
}
