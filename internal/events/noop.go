package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// NoopPublisher drops events. Used when NATS_URL is not configured.
type NoopPublisher struct {
	log *zap.Logger
}

func NewNoopPublisher(log *zap.Logger) *NoopPublisher {
	return &NoopPublisher{log: log}
}

func (p *NoopPublisher) Publish(_ context.Context, topic string, env Envelope) error {
	if p.log != nil {
		p.log.Debug("event dropped", zap.String("topic", topic), zap.String("type", env.Type))
	}
	return nil
}

// Published is one message captured by a Recorder.
type Published struct {
	Topic    string
	Envelope Envelope
}

// Recorder keeps every published envelope in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Published
}

func (r *Recorder) Publish(_ context.Context, topic string, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Published{Topic: topic, Envelope: env})
	return nil
}

func (r *Recorder) Messages() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.messages))
	copy(out, r.messages)
	return out
}

// Types returns the event types in publish order.
func (r *Recorder) Types() []string {
	msgs := r.Messages()
	types := make([]string, 0, len(msgs))
	for _, m := range msgs {
		types = append(types, m.Envelope.Type)
	}
	return types
}
