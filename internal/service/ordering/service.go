// Package ordering содержит обработчики команд над агрегатами заказов,
// дистрибьюторов и точек продаж.
//
// Каждая команда — одна единица работы: загрузить агрегат, выполнить ровно одну
// мутацию, сохранить с optimistic locking и только после успешного сохранения
// выгрузить события агрегата в outbox и timeline заказа. Выгрузка идёт отдельной
// операцией: её сбой логируется и не откатывает уже сохранённый агрегат.
package ordering

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
	"github.com/vladislavdragonenkov/dairy-oms/internal/metrics"
)

// RetryConfig управляет повторами единицы работы при конфликте версий.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      200 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

// Dependencies — хранилища и инфраструктура сервиса.
// Outbox, Timeline и Metrics опциональны.
type Dependencies struct {
	Orders       domain.OrderRepository
	Distributors domain.DistributorRepository
	PointsOfSale domain.PointOfSaleRepository
	Products     domain.ProductRepository
	Outbox       domain.OutboxRepository
	Timeline     domain.TimelineRepository
	Metrics      *metrics.OrderingMetrics
	Logger       *log.Entry
	Clock        func() time.Time
	Retry        RetryConfig
}

// Service выполняет команды и запросы над агрегатами.
type Service struct {
	orders       domain.OrderRepository
	distributors domain.DistributorRepository
	pointsOfSale domain.PointOfSaleRepository
	products     domain.ProductRepository
	outbox       domain.OutboxRepository
	timeline     domain.TimelineRepository
	metrics      *metrics.OrderingMetrics
	logger       *log.Entry
	clock        func() time.Time
	retry        RetryConfig
}

// NewService собирает сервис. Пустые поля Dependencies получают значения по умолчанию.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.New().WithField("component", "ordering")
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	retry := deps.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Service{
		orders:       deps.Orders,
		distributors: deps.Distributors,
		pointsOfSale: deps.PointsOfSale,
		products:     deps.Products,
		outbox:       deps.Outbox,
		timeline:     deps.Timeline,
		metrics:      deps.Metrics,
		logger:       logger,
		clock:        clock,
		retry:        retry,
	}
}

func (s *Service) now() time.Time { return s.clock().UTC() }

// begin открывает учёт команды. Возвращённая функция закрывает его и логирует исход.
func (s *Service) begin(command string, fields log.Fields) func(err error) {
	var done func(result string)
	if s.metrics != nil {
		done = s.metrics.CommandStarted(command)
	}
	return func(err error) {
		result := metrics.ResultOK
		entry := s.logger.WithField("command", command).WithFields(fields)
		if err != nil {
			if code, ok := domain.CodeOf(err); ok {
				result = metrics.ResultRejected
				entry.WithField("code", string(code)).WithError(err).Info("command rejected")
			} else {
				result = metrics.ResultError
				entry.WithError(err).Error("command failed")
			}
		} else {
			entry.Debug("command completed")
		}
		if done != nil {
			done(result)
		}
	}
}

// unitOfWork загружает агрегат, применяет mutate и сохраняет результат.
// При ErrVersionConflict весь цикл повторяется на свежем снимке с экспоненциальной задержкой.
// Ошибка mutate отбрасывает агрегат без сохранения и без выгрузки событий.
func unitOfWork[A domain.EventSource](
	ctx context.Context,
	s *Service,
	load func() (A, error),
	mutate func(A) error,
	save func(A) error,
) (A, error) {
	var zero A
	delay := s.retry.InitialDelay

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		aggregate, err := load()
		if err != nil {
			return zero, err
		}
		if err := mutate(aggregate); err != nil {
			return zero, err
		}

		err = save(aggregate)
		if err == nil {
			s.dispatch(aggregate.DrainEvents())
			return aggregate, nil
		}
		if !domain.IsVersionConflict(err) {
			return zero, err
		}

		if s.metrics != nil {
			s.metrics.RecordVersionConflict()
		}
		if attempt >= s.retry.MaxAttempts {
			return zero, err
		}
		s.logger.WithFields(log.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("version conflict detected, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * s.retry.BackoffFactor)
		if delay > s.retry.MaxDelay {
			delay = s.retry.MaxDelay
		}
	}
}

// dispatch передаёт события наружу в порядке возникновения.
// Агрегат уже сохранён, поэтому сбой доставки только логируется.
func (s *Service) dispatch(events []domain.Event) {
	for _, event := range events {
		occurred := s.now()
		if s.metrics != nil {
			s.metrics.RecordDomainEvent(event.EventType())
		}
		s.enqueue(event, occurred)
		if event.AggregateType() == domain.AggregateOrder {
			s.appendTimeline(event, occurred)
		}
	}
}

func (s *Service) enqueue(event domain.Event, occurred time.Time) {
	if s.outbox == nil {
		return
	}
	fields := log.Fields{
		"aggregate_id": event.AggregateID(),
		"event":        event.EventType(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("marshal event failed")
		return
	}
	msg := domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		EventType:     event.EventType(),
		Payload:       payload,
		OccurredAt:    occurred,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(fields).Error("enqueue event failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *Service) appendTimeline(event domain.Event, occurred time.Time) {
	if s.timeline == nil {
		return
	}
	entry := domain.TimelineEvent{
		OrderID:  event.AggregateID(),
		Type:     event.EventType(),
		Reason:   domain.TimelineReason(event),
		Occurred: occurred,
	}
	if err := s.timeline.Append(entry); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.AggregateID(),
			"event":    event.EventType(),
		}).Warn("append timeline event failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}
