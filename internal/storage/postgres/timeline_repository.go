package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// listTimelineSQL отдаёт историю заказа в хронологическом порядке.
// Команда выгружает несколько событий с одной и той же отметкой времени,
// поэтому второй ключ сортировки id (BIGSERIAL) сохраняет порядок их записи.
const listTimelineSQL = `
	SELECT type, reason, occurred
	FROM timeline_events
	WHERE order_id = $1
	ORDER BY occurred, id`

type timelineRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{
		db:  store.DB(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Append пишет событие заказа. Пустое время заменяется текущим; точность
// сокращается до микросекунд, как у TIMESTAMPTZ, чтобы List вернул то же значение.
func (r *timelineRepository) Append(event domain.TimelineEvent) error {
	if event.OrderID == "" {
		return fmt.Errorf("%w: timeline event without order id", domain.ErrValidation)
	}
	occurred := event.Occurred
	if occurred.IsZero() {
		occurred = r.now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO timeline_events (order_id, type, reason, occurred) VALUES ($1, $2, $3, $4)`,
		event.OrderID, event.Type, event.Reason, occurred.UTC().Truncate(time.Microsecond),
	)
	if err != nil {
		return fmt.Errorf("insert timeline event for order %s: %w", event.OrderID, err)
	}
	return nil
}

func (r *timelineRepository) List(orderID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, listTimelineSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("query timeline of order %s: %w", orderID, err)
	}
	defer rows.Close()

	history := []domain.TimelineEvent{}
	for rows.Next() {
		event, err := scanTimelineEvent(rows, orderID)
		if err != nil {
			return nil, err
		}
		history = append(history, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read timeline of order %s: %w", orderID, err)
	}
	return history, nil
}

func scanTimelineEvent(row rowScanner, orderID string) (domain.TimelineEvent, error) {
	event := domain.TimelineEvent{OrderID: orderID}
	if err := row.Scan(&event.Type, &event.Reason, &event.Occurred); err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("scan timeline event: %w", err)
	}
	event.Occurred = event.Occurred.UTC()
	return event, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
