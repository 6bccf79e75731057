package repo

import (
	"context"
	"database/sql"

	"stageline/internal/domain"
)

const eventColumns = `id,ts,type,project_id,entity_kind,COALESCE(entity_id,''),actor_id,COALESCE(payload_json,'')`

func scanEvent(s scanner) (domain.Event, error) {
	var e domain.Event
	var project sql.NullInt64
	if err := s.Scan(&e.ID, &e.TS, &e.Type, &project, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
		return e, notFound(err)
	}
	e.ProjectID = idPtr(project)
	return e, nil
}

func (r Repo) collectEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// ListEvents returns the newest events first. A zero projectID lists every project.
func (r Repo) ListEvents(ctx context.Context, projectID int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if projectID == 0 {
		return r.collectEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id DESC LIMIT ?`, limit)
	}
	return r.collectEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE project_id=? ORDER BY id DESC LIMIT ?`, projectID, limit)
}

// EventsAfter returns up to limit events with id greater than afterID, oldest first.
func (r Repo) EventsAfter(ctx context.Context, limit int, afterID, projectID int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	if projectID == 0 {
		return r.collectEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, afterID, limit)
	}
	return r.collectEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE id>? AND project_id=? ORDER BY id ASC LIMIT ?`, afterID, projectID, limit)
}

// LatestEventID returns the highest event id, 0 when there are none.
func (r Repo) LatestEventID(ctx context.Context, projectID int64) (int64, error) {
	var id sql.NullInt64
	var err error
	if projectID == 0 {
		err = r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events`).Scan(&id)
	} else {
		err = r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events WHERE project_id=?`, projectID).Scan(&id)
	}
	return id.Int64, err
}
