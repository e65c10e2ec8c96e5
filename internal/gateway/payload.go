package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Gateway string

const (
	Gateway_Midtrans Gateway = "midtrans"
	Gateway_Xendit   Gateway = "xendit"
)

var ErrUnsupportedGateway = errors.New("unsupported gateway")

// MidtransNotification is the JSON body Midtrans posts to the webhook
// endpoint. The signature travels inside the body itself.
type MidtransNotification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	GrossAmount       string `json:"gross_amount"`
	TransactionTime   string `json:"transaction_time"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
}

// XenditCallback is the JSON body Xendit posts. The signature travels in
// request headers, computed over the raw body.
type XenditCallback struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	PaidAt     string `json:"paid_at"`
}

// Delivery is the gateway-agnostic view of one verified webhook, handed to
// the reconciler after signature and shape checks passed.
type Delivery struct {
	Gateway       Gateway
	TransactionID string
	OrderID       string
	PaymentID     string
	Status        PaymentStatus
	PaymentType   string
	RawPayload    json.RawMessage
}

func ParseMidtrans(body []byte) (*MidtransNotification, error) {
	n := &MidtransNotification{}
	if err := json.Unmarshal(body, n); err != nil {
		return nil, fmt.Errorf("malformed midtrans payload: %w", err)
	}
	if n.OrderID == "" || n.TransactionStatus == "" {
		return nil, errors.New("midtrans payload missing order_id or transaction_status")
	}
	return n, nil
}

func ParseXendit(body []byte) (*XenditCallback, error) {
	cb := &XenditCallback{}
	if err := json.Unmarshal(body, cb); err != nil {
		return nil, fmt.Errorf("malformed xendit payload: %w", err)
	}
	if cb.ID == "" || cb.Status == "" {
		return nil, errors.New("xendit payload missing id or status")
	}
	return cb, nil
}

func (n *MidtransNotification) ToDelivery(raw []byte) *Delivery {
	return &Delivery{
		Gateway:       Gateway_Midtrans,
		TransactionID: n.TransactionID,
		OrderID:       n.OrderID,
		Status:        MapMidtransStatus(n.TransactionStatus, n.FraudStatus),
		PaymentType:   n.PaymentType,
		RawPayload:    raw,
	}
}

func (cb *XenditCallback) ToDelivery(raw []byte) *Delivery {
	return &Delivery{
		Gateway:       Gateway_Xendit,
		TransactionID: cb.ID,
		OrderID:       cb.ExternalID,
		PaymentID:     cb.ID,
		Status:        MapXenditStatus(cb.Status),
		RawPayload:    raw,
	}
}
