package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type EventType string

const (
	EventType_PaymentConfirmed EventType = "payment_confirmed"
	EventType_PaymentFailed    EventType = "payment_failed"
	EventType_PaymentRefunded  EventType = "payment_refunded"
)

type EventStatus string

const (
	EventStatus_Pending  EventStatus = "pending"
	EventStatus_Produced EventStatus = "produced"
)

type Event struct {
	EventID   string      `db:"event_id" json:"event_id"`
	EventType string      `db:"event_type" json:"event_type"`
	Timestamp time.Time   `db:"timestamp" json:"timestamp"`
	Status    EventStatus `db:"status" json:"status"`

	ParentID       string          `db:"parent_id" json:"parent_id"`
	ParentMetadata json.RawMessage `db:"parent_metadata" json:"parent_metadata"`
}

func NewEvent(eventType EventType, parentID string, parentMetadata json.RawMessage) *Event {
	return &Event{
		EventID:        uuid.NewString(),
		EventType:      string(eventType),
		Timestamp:      time.Now(),
		ParentID:       parentID,
		ParentMetadata: parentMetadata,
		Status:         EventStatus_Pending,
	}
}

type EventRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewEventRepo(db *sqlx.DB) *EventRepo {
	return &EventRepo{
		repo:      db,
		tableName: "outbox_events",
	}
}

func (r *EventRepo) GetRepo() *sqlx.DB {
	return r.repo
}

func (r *EventRepo) Insert(ctx context.Context, tx *sqlx.Tx, e *Event) (string, error) {
	q := fmt.Sprintf(`INSERT INTO %s (event_id, event_type, timestamp, parent_id, parent_metadata, status)
		VALUES (:event_id, :event_type, :timestamp, :parent_id, :parent_metadata, :status)`, r.tableName)
	_, err := tx.NamedExecContext(ctx, q, e)
	if err != nil {
		return "", err
	}
	return e.EventID, nil
}

// GetAllPending locks pending rows so concurrent relay ticks do not produce
// the same event twice.
func (r *EventRepo) GetAllPending(ctx context.Context, tx *sqlx.Tx) ([]*Event, error) {
	events := []*Event{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE status = $1 ORDER BY timestamp FOR UPDATE SKIP LOCKED", r.tableName)
	err := tx.SelectContext(ctx, &events, q, EventStatus_Pending)
	if err != nil {
		if err == sql.ErrNoRows {
			return events, nil
		}
		return nil, err
	}
	return events, nil
}

func (r *EventRepo) UpdateStatusByIDs(ctx context.Context, tx *sqlx.Tx, eventIDs []string, status EventStatus) (int, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(fmt.Sprintf("UPDATE %s SET status = ? WHERE event_id IN (?)", r.tableName), status, eventIDs)
	if err != nil {
		return 0, err
	}
	q = tx.Rebind(q)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}
