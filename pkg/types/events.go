package pkgtypes

import "time"

// PaymentNotification is the outbox event payload relayed to Kafka and
// consumed by the notification dispatcher.
type PaymentNotification struct {
	OrderID       string    `json:"order_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerEmail string    `json:"customer_email"`
	Amount        int64     `json:"amount"`
	ReceiptNos    []string  `json:"receipt_nos"`
	PaidAt        time.Time `json:"paid_at"`
}
