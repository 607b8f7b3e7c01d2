// Package events implements the two sinks of the event producer (§4.C9):
// an at-least-once audit queue over NATS JetStream, and an in-process
// SSE fan-out hub for live change notifications.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/nimbusvault/corestore/internal/logging"
	"github.com/nimbusvault/corestore/pkg/errors"
	"github.com/nimbusvault/corestore/pkg/types"
)

const (
	auditStreamName  = "AUDIT_EVENTS"
	auditSubject     = "audit.events"
	defaultJobTTL    = 12 * time.Hour
	retryBaseDelay   = 60 * time.Second
	maxDeliverTries  = 3
)

// auditJob is the wire payload enqueued for each audit emission.
type auditJob struct {
	RequestID        string                 `json:"request_id"`
	UserID           string                 `json:"user_id,omitempty"`
	Action           string                 `json:"action"`
	ResourceType     string                 `json:"resource_type"`
	ResourceID       string                 `json:"resource_id"`
	Status           types.AuditStatus      `json:"status"`
	IPAddress        string                 `json:"ip_address,omitempty"`
	UserAgent        string                 `json:"user_agent,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
}

// Producer is the §4.C9 event producer: enqueues audit jobs onto a
// JetStream stream and fans changes out to SSE subscribers.
type Producer struct {
	js     jetstream.JetStream
	stream jetstream.Stream

	mu          sync.RWMutex
	subscribers map[string]map[chan types.FileChangeEvent]struct{}
}

// Connect establishes the JetStream connection and ensures the audit
// stream exists, creating it with the configured retention window if
// absent.
func Connect(ctx context.Context, natsURL string, jobTTL time.Duration) (*Producer, error) {
	if jobTTL <= 0 || jobTTL > 24*time.Hour {
		jobTTL = defaultJobTTL
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnavailable, err, "failed to connect to NATS").
			WithComponent("events")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnavailable, err, "failed to initialise JetStream").
			WithComponent("events")
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      auditStreamName,
		Subjects:  []string{auditSubject},
		MaxAge:    jobTTL,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindUnavailable, err, "failed to create audit stream").
			WithComponent("events")
	}

	return &Producer{
		js:          js,
		stream:      stream,
		subscribers: make(map[string]map[chan types.FileChangeEvent]struct{}),
	}, nil
}

// EmitAudit enqueues exactly one job for the audit queue. At-least-once:
// the caller does not block on downstream processing, only on the
// publish ack.
func (p *Producer) EmitAudit(ctx context.Context, ev types.AuditEvent) {
	job := auditJob{
		RequestID:        ev.RequestID,
		Action:           ev.Action,
		ResourceType:     ev.ResourceType,
		ResourceID:       ev.ResourceID,
		Status:           ev.Status,
		IPAddress:        ev.IPAddress,
		UserAgent:        ev.UserAgent,
		Metadata:         ev.Metadata,
		ProcessingTimeMs: ev.ProcessingTimeMs,
	}
	if ev.UserID != nil {
		job.UserID = *ev.UserID
	}
	if ev.ErrorMessage != nil {
		job.ErrorMessage = *ev.ErrorMessage
	}

	payload, err := json.Marshal(job)
	if err != nil {
		logging.WithComponent("events").Error().Err(err).Msg("failed to encode audit job")
		return
	}

	if _, err := p.js.Publish(ctx, auditSubject, payload); err != nil {
		logging.WithComponent("events").Error().Err(err).
			Str("request_id", ev.RequestID).
			Msg("failed to publish audit job")
	}
}

// EmitChange fans a change notification out to every SSE subscriber
// registered for the event's user. Delivery is best-effort: a full
// subscriber channel is skipped rather than blocking the emitter.
func (p *Producer) EmitChange(ctx context.Context, ev types.FileChangeEvent) {
	p.mu.RLock()
	subs := p.subscribers[ev.UserID]
	chans := make([]chan types.FileChangeEvent, 0, len(subs))
	for ch := range subs {
		chans = append(chans, ch)
	}
	p.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a channel to receive change events for userID.
// The returned function unregisters it.
func (p *Producer) Subscribe(userID string, buffer int) (ch chan types.FileChangeEvent, unsubscribe func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch = make(chan types.FileChangeEvent, buffer)

	p.mu.Lock()
	if p.subscribers[userID] == nil {
		p.subscribers[userID] = make(map[chan types.FileChangeEvent]struct{})
	}
	p.subscribers[userID][ch] = struct{}{}
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		delete(p.subscribers[userID], ch)
		if len(p.subscribers[userID]) == 0 {
			delete(p.subscribers, userID)
		}
		p.mu.Unlock()
		close(ch)
	}
}
