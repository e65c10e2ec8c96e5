package notify

import (
	"context"

	pkgtypes "github.com/tpq-digital/payment-service/pkg/types"
)

// Channel is one delivery target for a payment confirmation. Channels are
// injected into the dispatcher so tests can swap them out.
type Channel interface {
	Name() string
	Send(ctx context.Context, n *pkgtypes.PaymentNotification) error
}
