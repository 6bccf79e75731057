package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ProjectCreated       = "project.created"
	ProjectUpdated       = "project.updated"
	ProjectCompleted     = "project.completed"
	ProjectArchived      = "project.archived"
	ProjectUnarchived    = "project.unarchived"
	ProjectDeleted       = "project.deleted"
	ProjectStatusDerived = "project.status.derived"
	StageCreated         = "stage.created"
	StageUpdated         = "stage.updated"
	StageReordered       = "stage.reordered"
	StageDeleted         = "stage.deleted"
	ActivityCreated      = "activity.created"
	ActivityUpdated      = "activity.updated"
	ActivityStatus       = "activity.status.changed"
	ActivityDeleted      = "activity.deleted"
	UserCreated          = "user.created"
	UserUpdated          = "user.updated"
	UserDeleted          = "user.deleted"
	APIKeyCreated        = "apikey.created"
	APIKeyRevoked        = "apikey.revoked"
	CatalogChanged       = "catalog.changed"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append records one event inside tx. A zero projectID is stored as NULL.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType string, projectID int64, entityKind string, entityID int64, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if actorID == "" {
		actorID = "system"
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,project_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, nullableID(projectID), entityKind, entityIDText(entityID), actorID, string(data))
	return err
}

func nullableID(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func entityIDText(v int64) any {
	if v == 0 {
		return nil
	}
	return fmt.Sprintf("%d", v)
}
