package account

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	dbpostgres "github.com/tpq-digital/payment-service/internal/db/postgres"
)

type AccountType string

const (
	AccountType_Cash AccountType = "CASH"
	AccountType_Bank AccountType = "BANK"
)

const DefaultCashAccountName = "Kas Utama"

type Account struct {
	ID        int         `db:"id"`
	Name      string      `db:"name"`
	Type      AccountType `db:"type"`
	Balance   int64       `db:"balance"`
	CreatedAt time.Time   `db:"created_at"`
}

type AccountRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{
		repo:      db,
		tableName: "financial_accounts",
	}
}

// ResolveDefaultCash returns the default cash account, creating it on first
// use so webhook fan-out never fails on a fresh install.
func (r *AccountRepo) ResolveDefaultCash(ctx context.Context, tx *sqlx.Tx) (*Account, error) {
	a := &Account{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE name = $1 AND type = $2", r.tableName)
	err := tx.GetContext(ctx, a, q, DefaultCashAccountName, AccountType_Cash)
	if err == nil {
		return a, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	a = &Account{
		Name:      DefaultCashAccountName,
		Type:      AccountType_Cash,
		Balance:   0,
		CreatedAt: time.Now(),
	}
	insert := fmt.Sprintf("INSERT INTO %s (name, type, balance, created_at) VALUES ($1, $2, $3, $4) RETURNING id", r.tableName)
	err = tx.GetContext(ctx, &a.ID, insert, a.Name, a.Type, a.Balance, a.CreatedAt)
	if err != nil {
		a.ID = dbpostgres.NonExistingIntKey
		return nil, err
	}
	return a, nil
}

func (r *AccountRepo) AddToBalance(ctx context.Context, tx *sqlx.Tx, accountID int, amount int64) error {
	q := fmt.Sprintf("UPDATE %s SET balance = balance + $1 WHERE id = $2", r.tableName)
	_, err := tx.ExecContext(ctx, q, amount, accountID)
	return err
}
