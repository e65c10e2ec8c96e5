package gateway

type PaymentStatus string

const (
	PaymentStatus_Success  PaymentStatus = "SUCCESS"
	PaymentStatus_Pending  PaymentStatus = "PENDING"
	PaymentStatus_Failed   PaymentStatus = "FAILED"
	PaymentStatus_Refunded PaymentStatus = "REFUNDED"
)

// MapMidtransStatus translates the Midtrans transaction_status vocabulary.
// capture is only a success when the fraud check accepted the card payment.
// Anything unrecognized maps to FAILED.
func MapMidtransStatus(transactionStatus, fraudStatus string) PaymentStatus {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "accept" {
			return PaymentStatus_Success
		}
		return PaymentStatus_Failed
	case "settlement":
		return PaymentStatus_Success
	case "pending":
		return PaymentStatus_Pending
	case "deny", "cancel", "expire":
		return PaymentStatus_Failed
	case "refund", "partial_refund":
		return PaymentStatus_Refunded
	default:
		return PaymentStatus_Failed
	}
}

// MapXenditStatus translates Xendit invoice/payment statuses.
func MapXenditStatus(status string) PaymentStatus {
	switch status {
	case "SUCCEEDED", "PAID":
		return PaymentStatus_Success
	case "PENDING":
		return PaymentStatus_Pending
	case "FAILED", "EXPIRED":
		return PaymentStatus_Failed
	case "REFUNDED":
		return PaymentStatus_Refunded
	default:
		return PaymentStatus_Failed
	}
}
