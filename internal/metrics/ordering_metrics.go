package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты команд для метки result.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// OrderingMetrics содержит метрики единиц работы над заказами, дистрибьюторами и точками продаж.
type OrderingMetrics struct {
	// Счётчики команд по типу и результату
	commands *prometheus.CounterVec
	// Время выполнения команды целиком, включая повторы
	commandDuration *prometheus.HistogramVec

	versionConflicts prometheus.Counter
	domainEvents     *prometheus.CounterVec
	timelineEvents   prometheus.Counter
	outboxEvents     prometheus.Counter

	// Gauge для команд в процессе выполнения
	inFlight prometheus.Gauge
}

// NewOrderingMetrics создаёт метрики в глобальном реестре Prometheus.
func NewOrderingMetrics() *OrderingMetrics {
	return NewOrderingMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderingMetricsWithRegisterer создаёт метрики в переданном реестре (удобно для тестов).
func NewOrderingMetricsWithRegisterer(registerer prometheus.Registerer) *OrderingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderingMetrics{
		commands: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_commands_total",
			Help: "Total number of commands handled, by command and result",
		}, []string{"command", "result"}),
		commandDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_command_duration_seconds",
			Help:    "Duration of command handling in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"command"}),
		versionConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_version_conflicts_total",
			Help: "Total number of optimistic locking conflicts detected on save",
		}),
		domainEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_domain_events_total",
			Help: "Total number of domain events drained from aggregates, by event type",
		}, []string{"event_type"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_outbox_enqueued_total",
			Help: "Total number of events enqueued into the outbox",
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "orders_commands_in_flight",
			Help: "Number of commands currently being handled",
		}),
	}
}

// CommandStarted отмечает начало команды и возвращает функцию завершения.
// Функция завершения записывает длительность и результат.
func (m *OrderingMetrics) CommandStarted(command string) func(result string) {
	start := time.Now()
	m.inFlight.Inc()
	return func(result string) {
		m.inFlight.Dec()
		m.commands.WithLabelValues(command, result).Inc()
		m.commandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	}
}

// RecordVersionConflict увеличивает счётчик конфликтов версий.
func (m *OrderingMetrics) RecordVersionConflict() {
	m.versionConflicts.Inc()
}

// RecordDomainEvent учитывает выгруженное из агрегата событие.
func (m *OrderingMetrics) RecordDomainEvent(eventType string) {
	m.domainEvents.WithLabelValues(eventType).Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderingMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий, поставленных в outbox.
func (m *OrderingMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
