package service

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/lendhub/lending-service/pkg/circuit_breaker"
	"github.com/lendhub/lending-service/pkg/kafka"
)

const (
	EventItemBorrowed    = "item_borrowed"
	EventItemReturned    = "item_returned"
	EventFineCreated     = "fine_created"
	EventFinePaid        = "fine_paid"
	EventMemberSuspended = "member_suspended"
)

type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	MemberUid  string    `json:"memberUid,omitempty"`
	ItemUid    string    `json:"itemUid,omitempty"`
	RecordUid  string    `json:"recordUid,omitempty"`
	FineUid    string    `json:"fineUid,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
}

// Events publishes lending lifecycle events to kafka. Publishing is
// best-effort: a broker failure is logged, never propagated to the business
// operation. A nil *Events is a valid no-op publisher.
type Events struct {
	producer sarama.SyncProducer
	cb       circuit_breaker.CircuitBreaker
	log      *zap.Logger
}

func NewEvents(producer sarama.SyncProducer, log *zap.Logger) *Events {
	return &Events{
		producer: producer,
		cb:       circuit_breaker.New(20, 30*time.Second, 0.5, 5),
		log:      log.Named("events"),
	}
}

func (e *Events) Publish(ev Event) {
	if e == nil || e.producer == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		e.log.Error("marshal event", zap.Error(err))
		return
	}
	err = e.cb.Call(func() error {
		_, _, err := e.producer.SendMessage(&sarama.ProducerMessage{
			Topic: kafka.LendingEventsTopic,
			Key:   sarama.StringEncoder(ev.Type),
			Value: sarama.ByteEncoder(payload),
		})
		return err
	})
	if err != nil {
		e.log.Warn("publish event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	e.log.Debug("event published", zap.String("type", ev.Type))
}
