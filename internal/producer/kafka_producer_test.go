package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type mockWriter struct {
	WriteFunc func(ctx context.Context, msgs ...kafka.Message) error
	closed    bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.WriteFunc(ctx, msgs...)
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublishOrderPlaced(t *testing.T) {
	var got []kafka.Message
	w := &mockWriter{WriteFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected write deadline")
		}
		got = append(got, msgs...)
		return nil
	}}
	p := &OrderEventProducer{writer: w}

	ev := service.OrderPlacedEvent{
		OrderID:        uuid.New(),
		OrderNumber:    "ORD-123456-001",
		UserID:         uuid.New(),
		PaymentMethod:  models.PaymentMethodOnPickup,
		DeliveryMethod: models.DeliveryMethodPickup,
		TotalAmount:    decimal.RequireFromString("68.20"),
		CreatedAt:      time.Now(),
	}
	if err := p.PublishOrderPlaced(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	msg := got[0]
	if string(msg.Key) != ev.OrderID.String() {
		t.Errorf("key = %s, want order id", msg.Key)
	}
	if h := header(msg, headerEventType); h != EventOrderPlaced {
		t.Errorf("event-type = %q", h)
	}
	var decoded service.OrderPlacedEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.OrderNumber != ev.OrderNumber || !decoded.TotalAmount.Equal(ev.TotalAmount) {
		t.Errorf("payload mismatch: %+v", decoded)
	}
}

func TestPublishCheckoutCreated_KeyIsSession(t *testing.T) {
	var key, typ string
	w := &mockWriter{WriteFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		key = string(msgs[0].Key)
		typ = header(msgs[0], headerEventType)
		return nil
	}}
	p := &OrderEventProducer{writer: w}
	sid := uuid.New()

	if err := p.PublishCheckoutCreated(context.Background(), service.CheckoutCreatedEvent{SessionID: sid, Reference: "CHK-x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != sid.String() || typ != EventCheckoutCreated {
		t.Errorf("key=%s type=%s", key, typ)
	}
}

func TestPublish_WriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &OrderEventProducer{writer: &mockWriter{WriteFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		return boom
	}}}
	err := p.PublishOrderCancelled(context.Background(), service.OrderCancelledEvent{OrderID: uuid.New()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
}

func TestClose(t *testing.T) {
	w := &mockWriter{}
	p := &OrderEventProducer{writer: w}
	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("close failed: %v", err)
	}
}
