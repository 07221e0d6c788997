package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/devguard/internal/infra"
	"go.uber.org/zap"
)

// Signaler публикует fire-and-forget сигналы в Redis: решения по заявкам
// и уведомления об изменении политик. Сигналы best-effort — устройства
// в любом случае опрашивают API, потеря сигнала лишь увеличивает задержку.
//
// Публикация обернута в Circuit Breaker: если Redis лег, нет смысла
// тратить таймаут соединения на каждый HTTP-запрос.
type Signaler struct {
	rdb    *redis.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func NewSignaler(rdb *redis.Client, logger *zap.Logger) *Signaler {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-signaler",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Если более 5 ошибок подряд — открываемся (перестаем дергать Redis)
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Signaler{
		rdb:    rdb,
		cb:     cb,
		logger: logger.Named("signaler"),
	}
}

// NotifyApprovalDecision шлет статус решения в канал конкретного устройства.
func (s *Signaler) NotifyApprovalDecision(ctx context.Context, deviceID, requestID, status string) {
	channel := infra.DeviceApprovalChan(deviceID)
	s.publish(ctx, channel, requestID+":"+status)
}

// NotifyPolicyUpdate — широковещательный сигнал "перечитайте политики".
func (s *Signaler) NotifyPolicyUpdate(ctx context.Context, deviceID string) {
	s.publish(ctx, infra.RedisChanPolicyUpdate, deviceID)
}

func (s *Signaler) publish(ctx context.Context, channel, payload string) {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.rdb.Publish(ctx, channel, payload).Err()
	})
	if err != nil {
		// Ошибка сигнала не должна ронять основную операцию
		s.logger.Warn("signal delivery failed",
			zap.String("channel", channel),
			zap.Error(err))
	}
}
