package dbstore

import (
	"context"
	"encoding/json"

	"github.com/nimbusvault/corestore/internal/idgen"
	"github.com/nimbusvault/corestore/pkg/errors"
	"github.com/nimbusvault/corestore/pkg/types"
)

const insertAuditEventSQL = `
	INSERT INTO audit_events (id, request_id, user_id, action, resource_type, resource_id,
		status, ip_address, user_agent, metadata, error_message, processing_time_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// InsertAuditEvent persists an audit record. The audit queue's consumer
// (internal/events' Handler) calls it once for each job it processes.
func (s *Store) InsertAuditEvent(ctx context.Context, ev *types.AuditEvent) error {
	id, err := idgen.New()
	if err != nil {
		return err
	}
	ev.ID = id

	var metadata []byte
	if ev.Metadata != nil {
		metadata, err = json.Marshal(ev.Metadata)
		if err != nil {
			return errors.Wrap(errors.KindInternal, err, "failed to encode audit metadata").
				WithComponent("dbstore")
		}
	}

	_, err = s.db.ExecContext(ctx, insertAuditEventSQL, ev.ID, ev.RequestID, ev.UserID, ev.Action,
		ev.ResourceType, ev.ResourceID, ev.Status, ev.IPAddress, ev.UserAgent, metadata,
		ev.ErrorMessage, ev.ProcessingTimeMs, ev.CreatedAt)
	if err != nil {
		return translateError(err, "InsertAuditEvent")
	}
	return nil
}
