package events

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/internal/logging"
	"github.com/nimbusvault/corestore/pkg/errors"
	"github.com/nimbusvault/corestore/pkg/types"
)

const consumerDurableName = "audit-persister"

// Handler drains the audit queue and persists each job durably. Jobs
// that fail validation, or whose persistence fails with a permanent
// error (conflict/integrity), are acked and dropped rather than
// redelivered; anything else is left to JetStream's redelivery policy
// up to maxDeliverTries, spaced by retryBaseDelay-scaled backoff.
type Handler struct {
	db *dbstore.Store
}

// NewHandler constructs a job handler bound to the durable store.
func NewHandler(db *dbstore.Store) *Handler {
	return &Handler{db: db}
}

// Run creates (or attaches to) the durable consumer on p's audit
// stream and processes messages until ctx is cancelled.
func (h *Handler) Run(ctx context.Context, p *Producer) error {
	backoff := make([]time.Duration, maxDeliverTries)
	for i := range backoff {
		backoff[i] = retryBaseDelay * time.Duration(1<<uint(i))
	}

	consumer, err := p.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       consumerDurableName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    maxDeliverTries,
		BackOff:       backoff,
		FilterSubject: auditSubject,
	})
	if err != nil {
		return errors.Wrap(errors.KindUnavailable, err, "failed to create audit consumer").
			WithComponent("events")
	}

	cctx, err := consumer.Consume(func(msg jetstream.Msg) {
		h.process(ctx, msg)
	})
	if err != nil {
		return errors.Wrap(errors.KindUnavailable, err, "failed to start audit consumer").
			WithComponent("events")
	}

	<-ctx.Done()
	cctx.Stop()
	return nil
}

func (h *Handler) process(ctx context.Context, msg jetstream.Msg) {
	var job auditJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		logging.WithComponent("events").Error().Err(err).Msg("dropping malformed audit job")
		_ = msg.Ack()
		return
	}

	if err := validateJob(job); err != nil {
		logging.WithComponent("events").Error().Err(err).
			Str("request_id", job.RequestID).
			Msg("dropping invalid audit job")
		_ = msg.Ack()
		return
	}

	ev := &types.AuditEvent{
		RequestID:        job.RequestID,
		Action:           job.Action,
		ResourceType:     job.ResourceType,
		ResourceID:       job.ResourceID,
		Status:           job.Status,
		IPAddress:        job.IPAddress,
		UserAgent:        job.UserAgent,
		Metadata:         job.Metadata,
		ProcessingTimeMs: job.ProcessingTimeMs,
		CreatedAt:        time.Now().UTC(),
	}
	if job.UserID != "" {
		ev.UserID = &job.UserID
	}
	if job.ErrorMessage != "" {
		ev.ErrorMessage = &job.ErrorMessage
	}

	err := h.db.InsertAuditEvent(ctx, ev)
	if err == nil {
		_ = msg.Ack()
		return
	}

	var ce *errors.Error
	if goerrors.As(err, &ce) && (ce.Kind == errors.KindConflict || ce.Kind == errors.KindIntegrityError) {
		logging.WithComponent("events").Error().Err(err).
			Str("request_id", job.RequestID).
			Msg("permanent audit persistence failure, dropping")
		_ = msg.Ack()
		return
	}

	logging.WithComponent("events").Warn().Err(err).
		Str("request_id", job.RequestID).
		Msg("transient audit persistence failure, will retry")
	_ = msg.Nak()
}

func validateJob(job auditJob) error {
	if job.RequestID == "" || job.Action == "" || job.ResourceType == "" || job.ResourceID == "" {
		return errors.New(errors.KindInvalidPath, "audit job missing required fields").
			WithComponent("events")
	}
	switch job.Status {
	case types.AuditStatusSuccess, types.AuditStatusFailure, types.AuditStatusError:
	default:
		return errors.New(errors.KindInvalidPath, "audit job has unknown status").
			WithComponent("events")
	}
	return nil
}
