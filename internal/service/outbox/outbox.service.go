package outbox

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/tpq-digital/payment-service/internal/kafka/avro"
	"github.com/tpq-digital/payment-service/internal/kafka/producer"
	outboxrepo "github.com/tpq-digital/payment-service/internal/repo/outbox"
	reposhared "github.com/tpq-digital/payment-service/internal/repo/repo-shared"
)

type eventStore interface {
	GetAllPending(ctx context.Context, tx *sqlx.Tx) ([]*outboxrepo.Event, error)
	UpdateStatusByIDs(ctx context.Context, tx *sqlx.Tx, eventIDs []string, status outboxrepo.EventStatus) (int, error)
}

type eventProducer interface {
	Produce(key string, msg []byte) error
}

// Service relays pending outbox rows to Kafka. Select, produce and the
// status flip to produced happen inside one transaction, so a crashed tick
// leaves the rows pending and the next tick retries them.
type Service struct {
	eventRepo eventStore
	producer  eventProducer
	codec     *avro.EventCodec
	tickDur   time.Duration
	stopCH    chan struct{}
	runTx     func(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) (int, error)) (int, error)
}

func NewService(er *outboxrepo.EventRepo, kp *producer.KafkaProducer) (*Service, error) {
	codec, err := avro.NewEventCodec()
	if err != nil {
		return nil, err
	}
	db := er.GetRepo()
	return &Service{
		eventRepo: er,
		producer:  kp,
		codec:     codec,
		tickDur:   2 * time.Second,
		stopCH:    make(chan struct{}),
		runTx: func(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) (int, error)) (int, error) {
			return reposhared.TxClosure(ctx, db, fn)
		},
	}, nil
}

func (s *Service) Run() {
	ticker := time.NewTicker(s.tickDur)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCH:
			return
		case <-ticker.C:
			s.handlePending()
		}
	}
}

func (s *Service) Stop() {
	close(s.stopCH)
}

func (s *Service) handlePending() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	produced, err := s.runTx(ctx, func(ctx context.Context, tx *sqlx.Tx) (int, error) {
		events, err := s.eventRepo.GetAllPending(ctx, tx)
		if err != nil {
			return 0, err
		}

		toUpdateIDs := []string{}
		for _, e := range events {
			b, err := s.codec.Encode(e)
			if err != nil {
				logrus.WithField("EVENT", e.EventID).Errorf("error encoding event %v", err)
				continue
			}
			if err := s.producer.Produce(e.ParentID, b); err != nil {
				logrus.WithField("EVENT", e.EventID).Errorf("error producing event %v", err)
				continue
			}
			toUpdateIDs = append(toUpdateIDs, e.EventID)
		}

		rows, err := s.eventRepo.UpdateStatusByIDs(ctx, tx, toUpdateIDs, outboxrepo.EventStatus_Produced)
		if err != nil {
			return 0, err
		}
		return rows, nil
	})

	if err != nil {
		logrus.Errorf("err outbox relay %v", err)
		return
	}
	if produced > 0 {
		logrus.WithField("COUNT", produced).Info("OUTBOX:PRODUCED")
	}
}
