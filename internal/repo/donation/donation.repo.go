package donation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	dbpostgres "github.com/tpq-digital/payment-service/internal/db/postgres"
)

type DonationStatus string

const (
	DonationStatus_Confirmed DonationStatus = "CONFIRMED"
	DonationStatus_Refunded  DonationStatus = "REFUNDED"
)

type Donation struct {
	ID         int            `db:"id"`
	OrderID    string         `db:"order_id"`
	DonorName  string         `db:"donor_name"`
	DonorPhone string         `db:"donor_phone"`
	DonorEmail string         `db:"donor_email"`
	Amount     int64          `db:"amount"`
	Status     DonationStatus `db:"status"`
	CreatedAt  time.Time      `db:"created_at"`
}

type DonationRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewDonationRepo(db *sqlx.DB) *DonationRepo {
	return &DonationRepo{
		repo:      db,
		tableName: "donations",
	}
}

func (r *DonationRepo) Insert(ctx context.Context, tx *sqlx.Tx, d *Donation) (int, error) {
	q := fmt.Sprintf(`INSERT INTO %s (order_id, donor_name, donor_phone, donor_email, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`, r.tableName)
	var id int
	err := tx.GetContext(ctx, &id, q, d.OrderID, d.DonorName, d.DonorPhone, d.DonorEmail, d.Amount, d.Status, d.CreatedAt)
	if err != nil {
		return dbpostgres.NonExistingIntKey, err
	}
	d.ID = id
	return id, nil
}

func (r *DonationRepo) GetByOrder(ctx context.Context, tx *sqlx.Tx, orderID string) ([]*Donation, error) {
	ds := []*Donation{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE order_id = $1", r.tableName)
	err := tx.SelectContext(ctx, &ds, q, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ds, nil
		}
		return nil, err
	}
	return ds, nil
}
