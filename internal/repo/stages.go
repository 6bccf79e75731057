package repo

import (
	"context"
	"database/sql"

	"stageline/internal/domain"
)

const stageColumns = `id,project_id,name,description,color,status,ordinal_number,created_at,updated_at`

func scanStage(s scanner) (domain.Stage, error) {
	var st domain.Stage
	var desc, color, status sql.NullString
	err := s.Scan(&st.ID, &st.ProjectID, &st.Name, &desc, &color, &status, &st.OrdinalNumber, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return st, notFound(err)
	}
	st.Description = desc.String
	st.Color = color.String
	st.Status = status.String
	return st, nil
}

// InsertStage stores st as given; callers pick the ordinal.
func (r Repo) InsertStage(ctx context.Context, tx *sql.Tx, st domain.Stage) (domain.Stage, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO stages(project_id,name,description,color,status,ordinal_number,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		st.ProjectID, st.Name, nullable(st.Description), nullable(st.Color), nullable(st.Status), st.OrdinalNumber, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return st, err
	}
	st.ID, err = res.LastInsertId()
	return st, err
}

func (r Repo) GetStage(ctx context.Context, tx *sql.Tx, id int64) (domain.Stage, error) {
	return scanStage(r.q(tx).QueryRowContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE id=?`, id))
}

// MaxStageOrdinal returns the highest ordinal in a project, 0 when it has no stages.
func (r Repo) MaxStageOrdinal(ctx context.Context, tx *sql.Tx, projectID int64) (int, error) {
	var max sql.NullInt64
	if err := r.q(tx).QueryRowContext(ctx, `SELECT MAX(ordinal_number) FROM stages WHERE project_id=?`, projectID).Scan(&max); err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (r Repo) GetStageOrdinal(ctx context.Context, tx *sql.Tx, stageID int64) (int, error) {
	var ordinal int
	err := r.q(tx).QueryRowContext(ctx, `SELECT ordinal_number FROM stages WHERE id=?`, stageID).Scan(&ordinal)
	return ordinal, notFound(err)
}

// FindStageByOrdinal looks the ordinal up within one project only.
func (r Repo) FindStageByOrdinal(ctx context.Context, tx *sql.Tx, projectID int64, ordinal int) (domain.Stage, error) {
	return scanStage(r.q(tx).QueryRowContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE project_id=? AND ordinal_number=?`, projectID, ordinal))
}

func (r Repo) UpdateStageOrdinal(ctx context.Context, tx *sql.Tx, stageID int64, ordinal int, updatedAt string) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE stages SET ordinal_number=?, updated_at=? WHERE id=?`, ordinal, updatedAt, stageID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// SwapStageOrdinals exchanges the ordinals of a and b. The first stage is parked
// on a negative ordinal so the (project_id, ordinal_number) index never sees a
// duplicate mid-swap. tx must be non-nil so the three writes commit together.
func (r Repo) SwapStageOrdinals(ctx context.Context, tx *sql.Tx, a, b domain.Stage, updatedAt string) error {
	if err := r.UpdateStageOrdinal(ctx, tx, a.ID, -a.OrdinalNumber, updatedAt); err != nil {
		return err
	}
	if err := r.UpdateStageOrdinal(ctx, tx, b.ID, a.OrdinalNumber, updatedAt); err != nil {
		return err
	}
	return r.UpdateStageOrdinal(ctx, tx, a.ID, b.OrdinalNumber, updatedAt)
}

func (r Repo) UpdateStage(ctx context.Context, tx *sql.Tx, st domain.Stage) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE stages SET name=?, description=?, color=?, status=?, updated_at=? WHERE id=?`,
		st.Name, nullable(st.Description), nullable(st.Color), nullable(st.Status), st.UpdatedAt, st.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeleteStage(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM stages WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// CompactStageOrdinals closes the gap left at removed by shifting every later
// stage down by one, lowest first so the unique index holds after each row.
func (r Repo) CompactStageOrdinals(ctx context.Context, tx *sql.Tx, projectID int64, removed int, updatedAt string) error {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT id, ordinal_number FROM stages WHERE project_id=? AND ordinal_number>? ORDER BY ordinal_number ASC`, projectID, removed)
	if err != nil {
		return err
	}
	type shift struct {
		id      int64
		ordinal int
	}
	var shifts []shift
	for rows.Next() {
		var s shift
		if err := rows.Scan(&s.id, &s.ordinal); err != nil {
			rows.Close()
			return err
		}
		shifts = append(shifts, s)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, s := range shifts {
		if err := r.UpdateStageOrdinal(ctx, tx, s.id, s.ordinal-1, updatedAt); err != nil {
			return err
		}
	}
	return nil
}

// ListStages returns a project's stages in ordinal order, without activities.
func (r Repo) ListStages(ctx context.Context, tx *sql.Tx, projectID int64) ([]domain.Stage, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE project_id=? ORDER BY ordinal_number ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Stage{}
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

// ListStagesWithActivities returns a project's stages in ordinal order, each
// carrying its activities ordered by id.
func (r Repo) ListStagesWithActivities(ctx context.Context, tx *sql.Tx, projectID int64) ([]domain.Stage, error) {
	stages, err := r.ListStages(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return stages, nil
	}
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+activityColumnsQualified+` FROM activities a
JOIN stages s ON s.id=a.stage_id
WHERE s.project_id=?
ORDER BY a.stage_id, a.id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	index := make(map[int64]int, len(stages))
	for i, st := range stages {
		index[st.ID] = i
		stages[i].Activities = []domain.Activity{}
	}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[a.StageID]; ok {
			stages[i].Activities = append(stages[i].Activities, a)
		}
	}
	return stages, rows.Err()
}
