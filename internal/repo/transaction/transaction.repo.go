package transaction

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	dbpostgres "github.com/tpq-digital/payment-service/internal/db/postgres"
)

type TransactionType string

const (
	TransactionType_Income  TransactionType = "INCOME"
	TransactionType_Expense TransactionType = "EXPENSE"
)

type TransactionStatus string

const (
	TransactionStatus_Paid     TransactionStatus = "PAID"
	TransactionStatus_Reversed TransactionStatus = "REVERSED"
)

// Transaction is one ledger line. Immutable after insert except for status
// correction (reversal).
type Transaction struct {
	ID        int               `db:"id"`
	ReceiptNo string            `db:"receipt_no"`
	Type      TransactionType   `db:"type"`
	Category  string            `db:"category"`
	Amount    int64             `db:"amount"`
	Status    TransactionStatus `db:"status"`
	StudentID sql.NullString    `db:"student_id"`
	AccountID int               `db:"account_id"`
	Reference string            `db:"reference"`
	CreatedAt time.Time         `db:"created_at"`
}

// NewReceiptNo generates receipt numbers like TRX-20260828-1A2B3C4D.
func NewReceiptNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TRX-%s-%s", now.Format("20060102"), suffix)
}

func NewSPPTransaction(studentID string, amount int64, accountID int, orderID string, now time.Time) *Transaction {
	return &Transaction{
		ReceiptNo: NewReceiptNo(now),
		Type:      TransactionType_Income,
		Category:  "SPP",
		Amount:    amount,
		Status:    TransactionStatus_Paid,
		StudentID: sql.NullString{String: studentID, Valid: studentID != ""},
		AccountID: accountID,
		Reference: orderID,
		CreatedAt: now,
	}
}

type TransactionRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewTransactionRepo(db *sqlx.DB) *TransactionRepo {
	return &TransactionRepo{
		repo:      db,
		tableName: "transactions",
	}
}

func (r *TransactionRepo) Insert(ctx context.Context, tx *sqlx.Tx, t *Transaction) (int, error) {
	q := fmt.Sprintf(`INSERT INTO %s (receipt_no, type, category, amount, status, student_id, account_id, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`, r.tableName)
	var id int
	err := tx.GetContext(ctx, &id, q, t.ReceiptNo, t.Type, t.Category, t.Amount, t.Status, t.StudentID, t.AccountID, t.Reference, t.CreatedAt)
	if err != nil {
		return dbpostgres.NonExistingIntKey, err
	}
	t.ID = id
	return id, nil
}

func (r *TransactionRepo) GetByReference(ctx context.Context, tx *sqlx.Tx, reference string) ([]*Transaction, error) {
	txns := []*Transaction{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE reference = $1", r.tableName)
	err := tx.SelectContext(ctx, &txns, q, reference)
	if err != nil {
		if err == sql.ErrNoRows {
			return txns, nil
		}
		return nil, err
	}
	return txns, nil
}
