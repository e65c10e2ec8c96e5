package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	dbpostgres "github.com/tpq-digital/payment-service/internal/db/postgres"
	"github.com/tpq-digital/payment-service/internal/gateway"
	"github.com/tpq-digital/payment-service/internal/repo/account"
	"github.com/tpq-digital/payment-service/internal/repo/donation"
	"github.com/tpq-digital/payment-service/internal/repo/inbox"
	"github.com/tpq-digital/payment-service/internal/repo/order"
	outboxrepo "github.com/tpq-digital/payment-service/internal/repo/outbox"
	"github.com/tpq-digital/payment-service/internal/repo/paymenttx"
	reposhared "github.com/tpq-digital/payment-service/internal/repo/repo-shared"
	"github.com/tpq-digital/payment-service/internal/repo/transaction"
	pkgtypes "github.com/tpq-digital/payment-service/pkg/types"
)

var (
	ErrOrderNotFound = errors.New("order not found for webhook delivery")
)

type orderStore interface {
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*order.Order, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status order.OrderStatus, paymentMethod string, paidAt *time.Time) (int64, error)
}

type transactionStore interface {
	Insert(ctx context.Context, tx *sqlx.Tx, t *transaction.Transaction) (int, error)
}

type donationStore interface {
	Insert(ctx context.Context, tx *sqlx.Tx, d *donation.Donation) (int, error)
}

type accountStore interface {
	ResolveDefaultCash(ctx context.Context, tx *sqlx.Tx) (*account.Account, error)
	AddToBalance(ctx context.Context, tx *sqlx.Tx, accountID int, amount int64) error
}

type paymentTxStore interface {
	GetByGatewayPaymentID(ctx context.Context, tx *sqlx.Tx, gatewayPaymentID string) (*paymenttx.PaymentTransaction, error)
}

type inboxStore interface {
	Insert(ctx context.Context, tx *sqlx.Tx, row *inbox.InboxRow) (int, error)
}

type outboxStore interface {
	Insert(ctx context.Context, tx *sqlx.Tx, e *outboxrepo.Event) (string, error)
}

type Result struct {
	OrderID        string
	Status         gateway.PaymentStatus
	OrderStatus    order.OrderStatus
	Duplicate      bool
	AlreadySettled bool
	ReceiptNos     []string
}

// Service applies one verified webhook delivery: records it in the inbox,
// moves the order to its terminal status and, on success, creates the
// financial records and queues the notification event. Everything runs in a
// single database transaction, so a duplicate delivery or a mid-flight crash
// can never leave half the side effects behind.
type Service struct {
	runTx        func(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) (*Result, error)) (*Result, error)
	orders       orderStore
	transactions transactionStore
	donations    donationStore
	accounts     accountStore
	payments     paymentTxStore
	inbox        inboxStore
	outbox       outboxStore
}

func NewService(db *sqlx.DB) *Service {
	return &Service{
		runTx: func(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) (*Result, error)) (*Result, error) {
			return reposhared.TxClosure(ctx, db, fn)
		},
		orders:       order.NewOrderRepo(db),
		transactions: transaction.NewTransactionRepo(db),
		donations:    donation.NewDonationRepo(db),
		accounts:     account.NewAccountRepo(db),
		payments:     paymenttx.NewPaymentTxRepo(db),
		inbox:        inbox.NewInboxRepo(db),
		outbox:       outboxrepo.NewEventRepo(db),
	}
}

func (s *Service) Process(ctx context.Context, d *gateway.Delivery) (*Result, error) {
	res, err := s.runTx(ctx, func(ctx context.Context, tx *sqlx.Tx) (*Result, error) {
		return s.processTx(ctx, tx, d)
	})
	if err != nil {
		if dbpostgres.IsDuplicateKeyErr(err) {
			logrus.WithFields(logrus.Fields{
				"GATEWAY": d.Gateway,
				"TXN":     d.TransactionID,
			}).Info("RECONCILE:DUPLICATE")
			return &Result{OrderID: d.OrderID, Status: d.Status, Duplicate: true}, nil
		}
		return nil, err
	}
	return res, nil
}

func (s *Service) processTx(ctx context.Context, tx *sqlx.Tx, d *gateway.Delivery) (*Result, error) {
	orderID, err := s.resolveOrderID(ctx, tx, d)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = s.inbox.Insert(ctx, tx, &inbox.InboxRow{
		Gateway:              string(d.Gateway),
		GatewayTransactionID: d.TransactionID,
		OrderID:              orderID,
		MappedStatus:         string(d.Status),
		RawPayload:           d.RawPayload,
		ReceivedAt:           now,
	})
	if err != nil {
		return nil, err
	}

	o, err := s.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	res := &Result{OrderID: orderID, Status: d.Status, OrderStatus: o.Status}

	// A PENDING gateway callback carries no transition; it is acknowledged
	// and recorded in the inbox only.
	if d.Status == gateway.PaymentStatus_Pending {
		return res, nil
	}

	// Orders transition out of PENDING at most once. A late callback for an
	// already settled order keeps the stored state.
	if o.Status != order.OrderStatus_Pending {
		res.AlreadySettled = true
		logrus.WithFields(logrus.Fields{
			"ORDER":  orderID,
			"STATUS": o.Status,
		}).Warn("RECONCILE:ALREADY_SETTLED")
		return res, nil
	}

	switch d.Status {
	case gateway.PaymentStatus_Success:
		// Xendit callbacks do not report a payment method; record the
		// gateway name instead of blanking the column.
		paymentMethod := d.PaymentType
		if paymentMethod == "" {
			paymentMethod = string(d.Gateway)
		}
		if _, err := s.orders.UpdateStatus(ctx, tx, orderID, order.OrderStatus_Paid, paymentMethod, &now); err != nil {
			return nil, err
		}
		res.OrderStatus = order.OrderStatus_Paid
		receiptNos, err := s.fanOut(ctx, tx, o, now)
		if err != nil {
			return nil, err
		}
		res.ReceiptNos = receiptNos
	case gateway.PaymentStatus_Failed:
		if _, err := s.orders.UpdateStatus(ctx, tx, orderID, order.OrderStatus_Failed, "", nil); err != nil {
			return nil, err
		}
		res.OrderStatus = order.OrderStatus_Failed
	case gateway.PaymentStatus_Refunded:
		if _, err := s.orders.UpdateStatus(ctx, tx, orderID, order.OrderStatus_Refunded, "", nil); err != nil {
			return nil, err
		}
		res.OrderStatus = order.OrderStatus_Refunded
	}

	logrus.WithFields(logrus.Fields{
		"ORDER":   orderID,
		"GATEWAY": d.Gateway,
		"STATUS":  res.OrderStatus,
	}).Info("RECONCILE:APPLIED")
	return res, nil
}

// resolveOrderID maps a delivery to a stored order. Midtrans sends the order
// id directly; Xendit sends its own payment id, which resolves through the
// payment_transactions table, falling back to external_id.
func (s *Service) resolveOrderID(ctx context.Context, tx *sqlx.Tx, d *gateway.Delivery) (string, error) {
	if d.PaymentID != "" {
		p, err := s.payments.GetByGatewayPaymentID(ctx, tx, d.PaymentID)
		if err != nil {
			return "", err
		}
		if p != nil {
			return p.OrderID, nil
		}
	}
	if d.OrderID != "" {
		return d.OrderID, nil
	}
	return "", ErrOrderNotFound
}

func (s *Service) fanOut(ctx context.Context, tx *sqlx.Tx, o *order.Order, now time.Time) ([]string, error) {
	cash, err := s.accounts.ResolveDefaultCash(ctx, tx)
	if err != nil {
		return nil, err
	}

	txns, donations, err := FanOutRecords(o, cash.ID, now)
	if err != nil {
		return nil, err
	}

	receiptNos := []string{}
	for _, t := range txns {
		if _, err := s.transactions.Insert(ctx, tx, t); err != nil {
			return nil, err
		}
		if err := s.accounts.AddToBalance(ctx, tx, t.AccountID, t.Amount); err != nil {
			return nil, err
		}
		receiptNos = append(receiptNos, t.ReceiptNo)
	}
	for _, d := range donations {
		if _, err := s.donations.Insert(ctx, tx, d); err != nil {
			return nil, err
		}
	}

	notif := &pkgtypes.PaymentNotification{
		OrderID:       o.ID,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: o.CustomerEmail,
		Amount:        o.Total,
		ReceiptNos:    receiptNos,
		PaidAt:        now,
	}
	metadata, err := json.Marshal(notif)
	if err != nil {
		return nil, err
	}

	event := outboxrepo.NewEvent(outboxrepo.EventType_PaymentConfirmed, o.ID, metadata)
	if _, err := s.outbox.Insert(ctx, tx, event); err != nil {
		return nil, err
	}

	return receiptNos, nil
}
