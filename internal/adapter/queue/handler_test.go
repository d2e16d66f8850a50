package queue

import (
	"context"
	"testing"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAuditWriter struct {
	events []domain.AuditEvent
}

func (w *memAuditWriter) Insert(_ context.Context, ev domain.AuditEvent) error {
	w.events = append(w.events, ev)
	return nil
}

func TestJSONHandler_DecodesAuditEvent(t *testing.T) {
	w := &memAuditWriter{}
	recorder := NewAuditRecorder(w)
	h := JSONHandler[domain.AuditEvent]{HandleFunc: recorder.HandleEvent}

	body := []byte(`{"sessionId":"sess-1","customerId":"cust-1","action":"checkout.initiated","toStatus":"INITIATED"}`)
	require.NoError(t, h.Handle(context.Background(), amqp.Delivery{Body: body}))

	require.Len(t, w.events, 1)
	assert.Equal(t, "sess-1", w.events[0].SessionID)
	assert.Equal(t, domain.AuditCheckoutInitiated, w.events[0].Action)
	assert.Equal(t, "INITIATED", w.events[0].ToStatus)
}

func TestJSONHandler_RejectsMalformedBody(t *testing.T) {
	h := JSONHandler[domain.AuditEvent]{HandleFunc: func(context.Context, domain.AuditEvent) error {
		t.Fatal("handler must not run on malformed payloads")
		return nil
	}}
	assert.Error(t, h.Handle(context.Background(), amqp.Delivery{Body: []byte("{broken")}))
}
