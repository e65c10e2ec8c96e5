package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type OrderStatus string

const (
	OrderStatus_Pending  OrderStatus = "PENDING"
	OrderStatus_Paid     OrderStatus = "PAID"
	OrderStatus_Failed   OrderStatus = "FAILED"
	OrderStatus_Refunded OrderStatus = "REFUNDED"
)

type ItemType string

const (
	ItemType_SPP      ItemType = "SPP"
	ItemType_Donation ItemType = "DONATION"
)

// LineItem is one entry of the serialized items column. SPP items carry the
// student the tuition belongs to; donation items only carry the amount.
type LineItem struct {
	Type      ItemType `json:"type"`
	Name      string   `json:"name"`
	Amount    int64    `json:"amount"`
	StudentID string   `json:"student_id,omitempty"`
	Month     string   `json:"month,omitempty"`
}

type Order struct {
	ID            string          `db:"id"`
	CustomerName  string          `db:"customer_name"`
	CustomerPhone string          `db:"customer_phone"`
	CustomerEmail string          `db:"customer_email"`
	Items         json.RawMessage `db:"items"`
	Subtotal      int64           `db:"subtotal"`
	Discount      int64           `db:"discount"`
	Total         int64           `db:"total"`
	Status        OrderStatus     `db:"status"`
	PaymentMethod sql.NullString  `db:"payment_method"`
	PaidAt        sql.NullTime    `db:"paid_at"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (o *Order) LineItems() ([]LineItem, error) {
	items := []LineItem{}
	if len(o.Items) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(o.Items, &items); err != nil {
		return nil, fmt.Errorf("order %s has malformed items: %w", o.ID, err)
	}
	return items, nil
}

type OrderRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{
		repo:      db,
		tableName: "orders",
	}
}

func (r *OrderRepo) GetRepo() *sqlx.DB {
	return r.repo
}

func (r *OrderRepo) Get(ctx context.Context, tx *sqlx.Tx, id string) (*Order, error) {
	return r.get(ctx, tx, id, "")
}

// GetForUpdate locks the order row for the duration of the reconciliation
// transaction.
func (r *OrderRepo) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*Order, error) {
	return r.get(ctx, tx, id, " FOR UPDATE")
}

func (r *OrderRepo) get(ctx context.Context, tx *sqlx.Tx, id, lock string) (*Order, error) {
	o := &Order{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE id = $1%s", r.tableName, lock)
	err := tx.GetContext(ctx, o, q, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) Insert(ctx context.Context, tx *sqlx.Tx, o *Order) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, customer_name, customer_phone, customer_email, items, subtotal, discount, total, status, payment_method, created_at, updated_at)
		VALUES (:id, :customer_name, :customer_phone, :customer_email, :items, :subtotal, :discount, :total, :status, :payment_method, :created_at, :updated_at)`, r.tableName)
	_, err := tx.NamedExecContext(ctx, q, o)
	return err
}

// UpdateStatus writes the mapped gateway status. paid_at and payment_method
// are only touched on a successful payment.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status OrderStatus, paymentMethod string, paidAt *time.Time) (int64, error) {
	var res sql.Result
	var err error
	if paidAt != nil {
		q := fmt.Sprintf("UPDATE %s SET status = $1, payment_method = $2, paid_at = $3, updated_at = $4 WHERE id = $5", r.tableName)
		res, err = tx.ExecContext(ctx, q, status, paymentMethod, *paidAt, time.Now(), id)
	} else {
		q := fmt.Sprintf("UPDATE %s SET status = $1, updated_at = $2 WHERE id = $3", r.tableName)
		res, err = tx.ExecContext(ctx, q, status, time.Now(), id)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
