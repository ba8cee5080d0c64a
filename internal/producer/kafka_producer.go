package producer

import (
	"context"
	"encoding/json"
	"time"

	"storefront-service/internal/service"

	"github.com/segmentio/kafka-go"
)

const (
	EventOrderPlaced     = "order.placed"
	EventOrderCancelled  = "order.cancelled"
	EventCheckoutCreated = "checkout.created"

	headerEventType = "event-type"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderEventProducer публикует события заказов в один топик; ключ — id заказа/сессии.
type OrderEventProducer struct {
	writer messageWriter
}

func NewOrderEventProducer(brokers []string, topic string) *OrderEventProducer {
	return &OrderEventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *OrderEventProducer) PublishOrderPlaced(ctx context.Context, e service.OrderPlacedEvent) error {
	return p.send(ctx, EventOrderPlaced, e.OrderID.String(), e)
}

func (p *OrderEventProducer) PublishOrderCancelled(ctx context.Context, e service.OrderCancelledEvent) error {
	return p.send(ctx, EventOrderCancelled, e.OrderID.String(), e)
}

func (p *OrderEventProducer) PublishCheckoutCreated(ctx context.Context, e service.CheckoutCreatedEvent) error {
	return p.send(ctx, EventCheckoutCreated, e.SessionID.String(), e)
}

func (p *OrderEventProducer) send(ctx context.Context, eventType, key string, payload any) error {
	msg, err := buildMessage(eventType, key, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(ctx, msg)
}

func buildMessage(eventType, key string, payload any) (kafka.Message, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(eventType)},
		},
	}, nil
}

func (p *OrderEventProducer) Close() error {
	return p.writer.Close()
}
