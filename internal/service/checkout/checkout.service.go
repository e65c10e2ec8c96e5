package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/tpq-digital/payment-service/internal/repo/donation"
	"github.com/tpq-digital/payment-service/internal/repo/order"
	"github.com/tpq-digital/payment-service/internal/repo/paymenttx"
	reposhared "github.com/tpq-digital/payment-service/internal/repo/repo-shared"
	"github.com/tpq-digital/payment-service/internal/repo/transaction"
)

var (
	ErrEmptyCart       = errors.New("checkout requires at least one line item")
	ErrInvalidAmount   = errors.New("line item amounts must be positive")
	ErrInvalidDiscount = errors.New("discount must be between zero and the cart subtotal")
	ErrOrderNotFound   = errors.New("order not found")
)

type Request struct {
	CustomerName     string           `json:"customer_name"`
	CustomerPhone    string           `json:"customer_phone"`
	CustomerEmail    string           `json:"customer_email"`
	Items            []order.LineItem `json:"items"`
	Discount         int64            `json:"discount"`
	Gateway          string           `json:"gateway"`
	GatewayPaymentID string           `json:"gateway_payment_id,omitempty"`
}

type Detail struct {
	Order        *order.Order               `json:"order"`
	Transactions []*transaction.Transaction `json:"transactions"`
	Donations    []*donation.Donation       `json:"donations"`
}

// Service creates PENDING orders from cart submissions and records the
// gateway payment id so Xendit callbacks can be resolved back to an order.
type Service struct {
	db        *sqlx.DB
	orders    *order.OrderRepo
	payments  *paymenttx.PaymentTxRepo
	txns      *transaction.TransactionRepo
	donations *donation.DonationRepo
}

func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:        db,
		orders:    order.NewOrderRepo(db),
		payments:  paymenttx.NewPaymentTxRepo(db),
		txns:      transaction.NewTransactionRepo(db),
		donations: donation.NewDonationRepo(db),
	}
}

func NewOrderID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("TPQ-CART-%s", suffix)
}

// buildOrder validates a cart submission and prices it into a PENDING order.
func buildOrder(req *Request, now time.Time) (*order.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var subtotal int64
	for _, item := range req.Items {
		if item.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		subtotal += item.Amount
	}
	if req.Discount < 0 || req.Discount > subtotal {
		return nil, ErrInvalidDiscount
	}

	items, err := json.Marshal(req.Items)
	if err != nil {
		return nil, err
	}

	return &order.Order{
		ID:            NewOrderID(),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Items:         items,
		Subtotal:      subtotal,
		Discount:      req.Discount,
		Total:         subtotal - req.Discount,
		Status:        order.OrderStatus_Pending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Service) Create(ctx context.Context, req *Request) (*order.Order, error) {
	now := time.Now()
	o, err := buildOrder(req, now)
	if err != nil {
		return nil, err
	}

	return reposhared.TxClosure(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) (*order.Order, error) {
		if err := s.orders.Insert(ctx, tx, o); err != nil {
			return nil, err
		}
		if req.GatewayPaymentID != "" {
			err := s.payments.Insert(ctx, tx, &paymenttx.PaymentTransaction{
				GatewayPaymentID: req.GatewayPaymentID,
				Gateway:          req.Gateway,
				OrderID:          o.ID,
				Amount:           o.Total,
				CreatedAt:        now,
			})
			if err != nil {
				return nil, err
			}
		}
		logrus.WithFields(logrus.Fields{
			"ORDER": o.ID,
			"TOTAL": o.Total,
		}).Info("CHECKOUT:CREATED")
		return o, nil
	})
}

// GetDetail returns an order with the ledger rows the webhook fan-out
// produced for it, for the admin dashboard.
func (s *Service) GetDetail(ctx context.Context, orderID string) (*Detail, error) {
	return reposhared.TxClosure(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) (*Detail, error) {
		o, err := s.orders.Get(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, ErrOrderNotFound
		}
		txns, err := s.txns.GetByReference(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		donations, err := s.donations.GetByOrder(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		return &Detail{Order: o, Transactions: txns, Donations: donations}, nil
	})
}
