package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	dbpostgres "github.com/tpq-digital/payment-service/internal/db/postgres"
)

// InboxRow records one processed webhook delivery. The unique constraint on
// (gateway, gateway_transaction_id, mapped_status) is the idempotency guard:
// a retried delivery collides here and the whole reconciliation tx rolls
// back. The mapped status is part of the key because Midtrans reuses one
// transaction_id across its pending and settlement notifications.
type InboxRow struct {
	ID                   int             `db:"id"`
	Gateway              string          `db:"gateway"`
	GatewayTransactionID string          `db:"gateway_transaction_id"`
	OrderID              string          `db:"order_id"`
	MappedStatus         string          `db:"mapped_status"`
	RawPayload           json.RawMessage `db:"raw_payload"`
	ReceivedAt           time.Time       `db:"received_at"`
}

type InboxRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewInboxRepo(db *sqlx.DB) *InboxRepo {
	return &InboxRepo{
		repo:      db,
		tableName: "webhook_inbox",
	}
}

func (r *InboxRepo) Insert(ctx context.Context, tx *sqlx.Tx, row *InboxRow) (int, error) {
	q := fmt.Sprintf(`INSERT INTO %s (gateway, gateway_transaction_id, order_id, mapped_status, raw_payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, r.tableName)
	var id int
	err := tx.GetContext(ctx, &id, q, row.Gateway, row.GatewayTransactionID, row.OrderID, row.MappedStatus, row.RawPayload, row.ReceivedAt)
	if err != nil {
		if dbpostgres.IsDuplicateKeyErr(err) {
			return dbpostgres.DuplicateKeyViolation, err
		}
		return dbpostgres.NonExistingIntKey, err
	}
	row.ID = id
	return id, nil
}
