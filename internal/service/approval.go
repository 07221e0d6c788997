package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/devguard/internal/domain"
	"github.com/xela07ax/devguard/internal/infra"
	"go.uber.org/zap"
)

// ApprovalRepository описывает требования сервиса к хранилищу заявок
type ApprovalRepository interface {
	CreateApproval(ctx context.Context, app *domain.ApprovalRequest) error
	GetApprovalByIDAndDevice(ctx context.Context, id, deviceID string) (*domain.ApprovalRequest, error)
	ResolveApproval(ctx context.Context, id string, status domain.ApprovalStatus, notes *string, resolvedAt time.Time) (*domain.ApprovalRequest, error)
	FindPendingApprovals(ctx context.Context) ([]*domain.PendingRequest, error)
	FindApprovalsByDevice(ctx context.Context, deviceID string) ([]*domain.ApprovalRequest, error)

	// Cooldown Policy Resolver: часы кулдауна устройства (дефолт 48)
	GetCooldownHours(ctx context.Context, deviceID string) (int, error)
}

// DecisionNotifier — best-effort уведомление устройства о решении
type DecisionNotifier interface {
	NotifyApprovalDecision(ctx context.Context, deviceID, requestID, status string)
}

// ApprovalService владеет всеми переходами жизненного цикла заявки:
// submit -> resolve -> (кулдаун истек) -> applicable.
type ApprovalService struct {
	repo     ApprovalRepository
	notifier DecisionNotifier
	metrics  *infra.Metrics
	logger   *zap.Logger

	// Инжектируемые часы: вся арифметика кулдауна считается от одного now
	now func() time.Time
}

func NewApprovalService(repo ApprovalRepository, notifier DecisionNotifier, metrics *infra.Metrics, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{
		repo:     repo,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.Named("approval-service"),
		now:      time.Now,
	}
}

// Submit создает заявку от лица устройства. Кулдаун резолвится в момент
// подачи и фиксируется в cooldown_until — дальнейшие изменения настроек
// устройства на уже поданные заявки не влияют.
func (s *ApprovalService) Submit(ctx context.Context, deviceID, requestType string, targetData map[string]any, notes *string) (*domain.ApprovalRequest, error) {
	if strings.TrimSpace(requestType) == "" {
		return nil, fmt.Errorf("%w: request_type is required", domain.ErrValidation)
	}
	if targetData == nil {
		return nil, fmt.Errorf("%w: target_data is required", domain.ErrValidation)
	}

	hours, err := s.repo.GetCooldownHours(ctx, deviceID)
	if err != nil {
		s.logger.Error("failed to resolve cooldown", zap.String("device_id", deviceID), zap.Error(err))
		return nil, fmt.Errorf("cooldown lookup failed: %w", err)
	}

	now := s.now()
	app := &domain.ApprovalRequest{
		ID:            uuid.New().String(),
		DeviceID:      deviceID,
		RequestType:   requestType,
		TargetData:    targetData,
		Notes:         notes,
		Status:        domain.StatusPending,
		CooldownUntil: now.Add(time.Duration(hours) * time.Hour),
		RequestedAt:   now,
	}

	if err := s.repo.CreateApproval(ctx, app); err != nil {
		s.logger.Error("failed to persist approval request",
			zap.String("device_id", deviceID),
			zap.String("request_type", requestType),
			zap.Error(err))
		return nil, fmt.Errorf("database insert failed: %w", err)
	}

	s.logger.Info("approval request submitted",
		zap.String("request_id", app.ID),
		zap.String("device_id", deviceID),
		zap.String("request_type", requestType),
		zap.Int("cooldown_hours", hours))

	return app, nil
}

// StatusResult — ответ checkStatus: запись плюс вычисленный can_apply.
type StatusResult struct {
	Request  *domain.ApprovalRequest `json:"request"`
	CanApply bool                    `json:"can_apply"`
}

// CheckStatus — чтение строго в рамках устройства-вызывающего.
// Чужие и несуществующие заявки неразличимы (оба — ErrNotFound).
func (s *ApprovalService) CheckStatus(ctx context.Context, deviceID, requestID string) (*StatusResult, error) {
	app, err := s.repo.GetApprovalByIDAndDevice(ctx, requestID, deviceID)
	if err != nil {
		return nil, err
	}

	return &StatusResult{
		Request:  app,
		CanApply: app.CanApply(s.now()),
	}, nil
}

// Resolve фиксирует решение админа. Статус проверяется до похода в базу,
// обновление условное (только из pending) — повторное решение дает
// ErrAlreadyResolved, а не перезапись.
func (s *ApprovalService) Resolve(ctx context.Context, adminID, requestID string, status domain.ApprovalStatus, notes *string) (*domain.ApprovalRequest, error) {
	if err := domain.ValidateResolution(status); err != nil {
		return nil, err
	}

	app, err := s.repo.ResolveApproval(ctx, requestID, status, notes, s.now())
	if err != nil {
		s.logger.Warn("approval resolution rejected",
			zap.String("request_id", requestID),
			zap.String("admin_id", adminID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.ApprovalsDecided.WithLabelValues(string(status)).Inc()

	// Push-сигнал устройству; при потере устройство узнает через polling
	s.notifier.NotifyApprovalDecision(ctx, app.DeviceID, app.ID, string(status))

	s.logger.Info("approval resolved",
		zap.String("request_id", app.ID),
		zap.String("device_id", app.DeviceID),
		zap.String("admin_id", adminID),
		zap.String("status", string(status)))

	return app, nil
}

// ListPending — очередь решений для админки.
func (s *ApprovalService) ListPending(ctx context.Context) ([]*domain.PendingRequest, error) {
	list, err := s.repo.FindPendingApprovals(ctx)
	if err != nil {
		s.logger.Error("failed to list pending approvals", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch pending approvals: %w", err)
	}
	return list, nil
}

// ListByDevice — история заявок устройства-вызывающего.
func (s *ApprovalService) ListByDevice(ctx context.Context, deviceID string) ([]*domain.ApprovalRequest, error) {
	list, err := s.repo.FindApprovalsByDevice(ctx, deviceID)
	if err != nil {
		s.logger.Error("failed to list device approvals", zap.String("device_id", deviceID), zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch approvals: %w", err)
	}
	return list, nil
}
