package reconcile

import (
	"time"

	"github.com/tpq-digital/payment-service/internal/repo/donation"
	"github.com/tpq-digital/payment-service/internal/repo/order"
	"github.com/tpq-digital/payment-service/internal/repo/transaction"
)

// FanOutRecords turns a paid order's line items into the ledger rows to
// insert: one INCOME transaction per SPP item, one confirmed donation per
// DONATION item. Unknown item types are skipped.
func FanOutRecords(o *order.Order, accountID int, now time.Time) ([]*transaction.Transaction, []*donation.Donation, error) {
	items, err := o.LineItems()
	if err != nil {
		return nil, nil, err
	}

	txns := []*transaction.Transaction{}
	donations := []*donation.Donation{}

	for _, item := range items {
		switch item.Type {
		case order.ItemType_SPP:
			txns = append(txns, transaction.NewSPPTransaction(item.StudentID, item.Amount, accountID, o.ID, now))
		case order.ItemType_Donation:
			donations = append(donations, &donation.Donation{
				OrderID:    o.ID,
				DonorName:  o.CustomerName,
				DonorPhone: o.CustomerPhone,
				DonorEmail: o.CustomerEmail,
				Amount:     item.Amount,
				Status:     donation.DonationStatus_Confirmed,
				CreatedAt:  now,
			})
		}
	}

	return txns, donations, nil
}
