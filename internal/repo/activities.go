package repo

import (
	"context"
	"database/sql"

	"stageline/internal/domain"
)

const activityColumns = `id,stage_id,title,description,status,priority,assigned_to_user_id,start_date,end_date,executed_start_date,executed_end_date,created_at,updated_at`

const activityColumnsQualified = `a.id,a.stage_id,a.title,a.description,a.status,a.priority,a.assigned_to_user_id,a.start_date,a.end_date,a.executed_start_date,a.executed_end_date,a.created_at,a.updated_at`

func scanActivity(s scanner) (domain.Activity, error) {
	var a domain.Activity
	var desc, start, end, execStart, execEnd sql.NullString
	var assignee sql.NullInt64
	err := s.Scan(&a.ID, &a.StageID, &a.Title, &desc, &a.Status, &a.Priority, &assignee,
		&start, &end, &execStart, &execEnd, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, notFound(err)
	}
	a.Description = desc.String
	a.StartDate = start.String
	a.EndDate = end.String
	a.AssignedToUserID = idPtr(assignee)
	a.ExecutedStartDate = stringPtr(execStart)
	a.ExecutedEndDate = stringPtr(execEnd)
	return a, nil
}

func (r Repo) InsertActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) (domain.Activity, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO activities(stage_id,title,description,status,priority,assigned_to_user_id,start_date,end_date,executed_start_date,executed_end_date,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.StageID, a.Title, nullable(a.Description), a.Status, a.Priority, nullableIDPtr(a.AssignedToUserID),
		nullable(a.StartDate), nullable(a.EndDate), nullableStringPtr(a.ExecutedStartDate), nullableStringPtr(a.ExecutedEndDate),
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

func (r Repo) GetActivity(ctx context.Context, tx *sql.Tx, id int64) (domain.Activity, error) {
	return scanActivity(r.q(tx).QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id=?`, id))
}

// ListActivities returns the activities of one stage ordered by id.
func (r Repo) ListActivities(ctx context.Context, tx *sql.Tx, stageID int64) ([]domain.Activity, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE stage_id=? ORDER BY id`, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// UpdateActivity writes every mutable column of a, including status and executed dates.
func (r Repo) UpdateActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE activities SET stage_id=?, title=?, description=?, status=?, priority=?, assigned_to_user_id=?,
start_date=?, end_date=?, executed_start_date=?, executed_end_date=?, updated_at=? WHERE id=?`,
		a.StageID, a.Title, nullable(a.Description), a.Status, a.Priority, nullableIDPtr(a.AssignedToUserID),
		nullable(a.StartDate), nullable(a.EndDate), nullableStringPtr(a.ExecutedStartDate), nullableStringPtr(a.ExecutedEndDate),
		a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeleteActivity(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM activities WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// FindProjectIDForActivity resolves activity -> stage -> project.
func (r Repo) FindProjectIDForActivity(ctx context.Context, tx *sql.Tx, activityID int64) (int64, error) {
	var projectID int64
	err := r.q(tx).QueryRowContext(ctx, `SELECT s.project_id FROM activities a JOIN stages s ON s.id=a.stage_id WHERE a.id=?`, activityID).Scan(&projectID)
	return projectID, notFound(err)
}
