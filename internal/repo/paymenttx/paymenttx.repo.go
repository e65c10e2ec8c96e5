package paymenttx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PaymentTransaction maps a gateway-side payment identifier back to the order
// it pays for. Xendit callbacks only carry their own payment id, so the row
// is written at checkout time and looked up during reconciliation.
type PaymentTransaction struct {
	ID               int       `db:"id"`
	GatewayPaymentID string    `db:"gateway_payment_id"`
	Gateway          string    `db:"gateway"`
	OrderID          string    `db:"order_id"`
	Amount           int64     `db:"amount"`
	CreatedAt        time.Time `db:"created_at"`
}

type PaymentTxRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewPaymentTxRepo(db *sqlx.DB) *PaymentTxRepo {
	return &PaymentTxRepo{
		repo:      db,
		tableName: "payment_transactions",
	}
}

func (r *PaymentTxRepo) Insert(ctx context.Context, tx *sqlx.Tx, p *PaymentTransaction) error {
	q := fmt.Sprintf(`INSERT INTO %s (gateway_payment_id, gateway, order_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`, r.tableName)
	_, err := tx.ExecContext(ctx, q, p.GatewayPaymentID, p.Gateway, p.OrderID, p.Amount, p.CreatedAt)
	return err
}

func (r *PaymentTxRepo) GetByGatewayPaymentID(ctx context.Context, tx *sqlx.Tx, gatewayPaymentID string) (*PaymentTransaction, error) {
	p := &PaymentTransaction{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE gateway_payment_id = $1", r.tableName)
	err := tx.GetContext(ctx, p, q, gatewayPaymentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}
