package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"stageline/internal/domain"
)

const projectColumns = `id,name,description,start_date,end_date,status,real_start_date,real_end_date,archived,manager_user_id,category_id,area_id,created_at,updated_at`

func scanProject(s scanner) (domain.Project, error) {
	var p domain.Project
	var desc, start, end, realStart, realEnd sql.NullString
	var manager, category, area sql.NullInt64
	err := s.Scan(&p.ID, &p.Name, &desc, &start, &end, &p.Status, &realStart, &realEnd, &p.Archived,
		&manager, &category, &area, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, notFound(err)
	}
	p.Description = desc.String
	p.StartDate = start.String
	p.EndDate = end.String
	p.RealStartDate = stringPtr(realStart)
	p.RealEndDate = stringPtr(realEnd)
	p.ManagerUserID = idPtr(manager)
	p.CategoryID = idPtr(category)
	p.AreaID = idPtr(area)
	return p, nil
}

// InsertProject stores p and returns it with its assigned id.
func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) (domain.Project, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO projects(name,description,start_date,end_date,status,archived,manager_user_id,category_id,area_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, nullable(p.Description), nullable(p.StartDate), nullable(p.EndDate), p.Status, p.Archived,
		nullableIDPtr(p.ManagerUserID), nullableIDPtr(p.CategoryID), nullableIDPtr(p.AreaID), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

func (r Repo) GetProject(ctx context.Context, tx *sql.Tx, id int64) (domain.Project, error) {
	return scanProject(r.q(tx).QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

type ProjectFilters struct {
	Archived      *bool
	Status        string
	AreaID        int64
	CategoryID    int64
	ManagerUserID int64
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	var clauses []string
	var args []any
	if f.Archived != nil {
		clauses = append(clauses, "archived=?")
		args = append(args, *f.Archived)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AreaID != 0 {
		clauses = append(clauses, "area_id=?")
		args = append(args, f.AreaID)
	}
	if f.CategoryID != 0 {
		clauses = append(clauses, "category_id=?")
		args = append(args, f.CategoryID)
	}
	if f.ManagerUserID != 0 {
		clauses = append(clauses, "manager_user_id=?")
		args = append(args, f.ManagerUserID)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects`+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// UpdateProjectDetails writes the user-editable columns of p.
func (r Repo) UpdateProjectDetails(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE projects SET name=?, description=?, start_date=?, end_date=?, manager_user_id=?, category_id=?, area_id=?, updated_at=? WHERE id=?`,
		p.Name, nullable(p.Description), nullable(p.StartDate), nullable(p.EndDate),
		nullableIDPtr(p.ManagerUserID), nullableIDPtr(p.CategoryID), nullableIDPtr(p.AreaID), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DateField is an optional column write. When Set is false the column is left alone;
// a nil Value clears it.
type DateField struct {
	Set   bool
	Value *string
}

type ProjectStatusUpdate struct {
	Status        string
	RealStartDate DateField
	RealEndDate   DateField
	UpdatedAt     string
}

// UpdateProjectStatus writes a status and whichever real dates the update sets.
func (r Repo) UpdateProjectStatus(ctx context.Context, tx *sql.Tx, projectID int64, u ProjectStatusUpdate) error {
	fields := []string{"status=?"}
	args := []any{u.Status}
	if u.RealStartDate.Set {
		fields = append(fields, "real_start_date=?")
		args = append(args, nullableStringPtr(u.RealStartDate.Value))
	}
	if u.RealEndDate.Set {
		fields = append(fields, "real_end_date=?")
		args = append(args, nullableStringPtr(u.RealEndDate.Value))
	}
	if u.UpdatedAt != "" {
		fields = append(fields, "updated_at=?")
		args = append(args, u.UpdatedAt)
	}
	args = append(args, projectID)
	res, err := r.q(tx).ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) SetProjectArchived(ctx context.Context, tx *sql.Tx, projectID int64, archived bool, updatedAt string) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE projects SET archived=?, updated_at=? WHERE id=?`, archived, updatedAt, projectID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeleteProject(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
