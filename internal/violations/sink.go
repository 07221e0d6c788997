package violations

/*
Файл sink.go реализует асинхронный прием нарушений от устройств.

Устройства шлют нарушения очередями (особенно батч-эндпоинт после
восстановления сети), поэтому вставка в violation_logs не должна
блокировать HTTP-ответ:
- Non-blocking Ingest: передача событий через буферизированный канал.
- Batching: накопление и пакетная запись (Bulk Insert) в PostgreSQL
  по таймеру или при достижении лимита пачки.
- Drain Pattern: при остановке сервиса канал закрывается, воркер
  вычитывает остатки и делает финальный flush — события не теряются.
- Load Shedding: при переполнении буфера событие сбрасывается с ошибкой
  в лог, вместо блокировки обработчика.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xela07ax/devguard/internal/domain"
	"github.com/xela07ax/devguard/internal/infra"
	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически сохраняются нарушения
type StorageInterface interface {
	// WriteViolations сохраняет пачку событий за один раз
	WriteViolations(ctx context.Context, events []domain.Violation) error
}

type Sink struct {
	ch      chan domain.Violation // Буфер для асинхронности
	repo    StorageInterface
	logger  *zap.Logger
	metrics *infra.Metrics
	wg      sync.WaitGroup

	batchSize     int
	flushInterval time.Duration

	isClosed int32 // Атомарный флаг (0 - открыт, 1 - закрыт)
}

func NewSink(repo StorageInterface, cfg infra.ViolationsConfig, metrics *infra.Metrics, logger *zap.Logger) *Sink {
	return &Sink{
		ch:            make(chan domain.Violation, cfg.BufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "violation-sink")),
		metrics:       metrics,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
	}
}

func (s *Sink) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (s *Sink) Stop() {
	atomic.StoreInt32(&s.isClosed, 1)

	// Даем крошечную паузу, чтобы текущие Log успели проскочить
	time.Sleep(10 * time.Millisecond)

	s.logger.Info("stopping violation sink: closing channel and flushing buffer...")
	close(s.ch)
	s.wg.Wait()
	s.logger.Info("violation sink stopped gracefully")
}

// Log принимает одно нарушение. Не блокирует вызывающего.
func (s *Sink) Log(event domain.Violation) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// Атомарно проверяем, не закрыт ли канал
	if atomic.LoadInt32(&s.isClosed) == 1 {
		s.logger.Warn("violation dropped: sink is stopping", zap.String("id", event.ID))
		return
	}

	select {
	case s.ch <- event:
		s.metrics.ViolationsIngested.WithLabelValues(event.ViolationType).Inc()
		s.metrics.ViolationBufferFill.Set(float64(len(s.ch)))
	default:
		// Буфер переполнен (Backpressure) — сбрасываем событие, но фиксируем факт
		s.logger.Error("violation_buffer_overflow",
			zap.String("device_id", event.DeviceID),
			zap.String("type", event.ViolationType),
		)
	}
}

func (s *Sink) worker() {
	defer s.wg.Done()

	batch := make([]domain.Violation, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Используем Background, так как основной контекст может быть уже закрыт
			if err := s.repo.WriteViolations(context.Background(), batch); err != nil {
				s.logger.Error("violation flush failed", zap.Error(err))
			}
			batch = batch[:0]
		}
		s.metrics.ViolationBufferFill.Set(float64(len(s.ch)))
	}

	for {
		select {
		case event, ok := <-s.ch:
			if !ok {
				// Канал закрыт в Stop(): вычитали остатки, финальный сброс и выход
				flush()
				s.logger.Info("violation worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
