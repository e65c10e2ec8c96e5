package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tpq-digital/payment-service/internal/kafka/avro"
	outboxrepo "github.com/tpq-digital/payment-service/internal/repo/outbox"
	pkgtypes "github.com/tpq-digital/payment-service/pkg/types"
)

// Dispatcher decodes notification events off Kafka and fans them out to the
// channels sequentially. A failing channel is logged and skipped; it never
// blocks the remaining channels or fails the message.
type Dispatcher struct {
	codec    *avro.EventCodec
	channels []Channel
}

func NewDispatcher(channels ...Channel) (*Dispatcher, error) {
	codec, err := avro.NewEventCodec()
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		codec:    codec,
		channels: channels,
	}, nil
}

func (d *Dispatcher) HandleMessage(msg *pkgtypes.Message[[]byte]) {
	event, err := d.codec.Decode(msg.Data)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"OFFSET": msg.Metadata.Offset,
			"PRTN":   msg.Metadata.Partition,
		}).Errorf("undecodable notification event: %v", err)
		return
	}

	if event.EventType != string(outboxrepo.EventType_PaymentConfirmed) {
		logrus.WithField("TYPE", event.EventType).Warn("DISPATCH:SKIPPED")
		return
	}

	n := &pkgtypes.PaymentNotification{}
	if err := json.Unmarshal(event.ParentMetadata, n); err != nil {
		logrus.WithField("EVENT", event.EventID).Errorf("malformed notification payload: %v", err)
		return
	}

	d.Dispatch(n)

	logrus.WithFields(logrus.Fields{
		"EVENT":  event.EventID,
		"ORDER":  n.OrderID,
		"OFFSET": msg.Metadata.Offset,
		"PRTN":   msg.Metadata.Partition,
	}).Info("DISPATCH:DONE")
}

func (d *Dispatcher) Dispatch(n *pkgtypes.PaymentNotification) {
	for _, ch := range d.channels {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := ch.Send(ctx, n); err != nil {
			logrus.WithFields(logrus.Fields{
				"CHANNEL": ch.Name(),
				"ORDER":   n.OrderID,
			}).Errorf("notification send failed: %v", err)
		}
		cancel()
	}
}
