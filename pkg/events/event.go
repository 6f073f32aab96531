package events

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/order_portal/pkg/logging"
)

type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

func New(typ string, payload any) Envelope {
	return Envelope{Type: typ, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Emit publishes after the state change has been committed. Delivery is best
// effort: a failure is logged and never surfaces to the caller.
func Emit(ctx context.Context, pub Publisher, topic, key string, env Envelope) {
	if pub == nil {
		return
	}
	if err := pub.PublishEvent(context.WithoutCancel(ctx), topic, key, env); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "type", env.Type, "error", err)
	}
}

type Record struct {
	Topic string
	Key   string
	Event Envelope
}

// Memory keeps published envelopes in process, for tests and local runs.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

func (m *Memory) PublishEvent(_ context.Context, topic, key string, event any) error {
	env, ok := event.(Envelope)
	if !ok {
		env = Envelope{Payload: event}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Record{Topic: topic, Key: key, Event: env})
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

func (m *Memory) Types() []string {
	recs := m.Records()
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Event.Type)
	}
	return out
}
