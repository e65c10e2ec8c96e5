package avro

import (
	"encoding/json"
	"fmt"
	"time"

	goavro "github.com/linkedin/goavro/v2"

	outboxrepo "github.com/tpq-digital/payment-service/internal/repo/outbox"
)

// Outbox events cross the wire as Avro binary. The schema is compiled in;
// there is no schema registry between the relay and the dispatcher.
const eventSchema = `{
	"type": "record",
	"name": "PaymentEvent",
	"namespace": "id.sch.tpq.payments",
	"fields": [
		{"name": "event_id", "type": "string"},
		{"name": "event_type", "type": "string"},
		{"name": "timestamp", "type": "long"},
		{"name": "parent_id", "type": "string"},
		{"name": "parent_metadata", "type": "string"},
		{"name": "status", "type": "string"}
	]
}`

type EventCodec struct {
	codec *goavro.Codec
}

func NewEventCodec() (*EventCodec, error) {
	codec, err := goavro.NewCodec(eventSchema)
	if err != nil {
		return nil, err
	}
	return &EventCodec{codec: codec}, nil
}

func (c *EventCodec) Encode(e *outboxrepo.Event) ([]byte, error) {
	native := map[string]any{
		"event_id":        e.EventID,
		"event_type":      e.EventType,
		"timestamp":       e.Timestamp.UnixMilli(),
		"parent_id":       e.ParentID,
		"parent_metadata": string(e.ParentMetadata),
		"status":          string(e.Status),
	}
	return c.codec.BinaryFromNative(nil, native)
}

func (c *EventCodec) Decode(data []byte) (*outboxrepo.Event, error) {
	native, _, err := c.codec.NativeFromBinary(data)
	if err != nil {
		return nil, err
	}
	fields, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected avro payload shape %T", native)
	}

	e := &outboxrepo.Event{
		EventID:        fields["event_id"].(string),
		EventType:      fields["event_type"].(string),
		Timestamp:      time.UnixMilli(fields["timestamp"].(int64)),
		ParentID:       fields["parent_id"].(string),
		ParentMetadata: json.RawMessage(fields["parent_metadata"].(string)),
		Status:         outboxrepo.EventStatus(fields["status"].(string)),
	}
	return e, nil
}
