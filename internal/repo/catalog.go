package repo

import (
	"context"
	"database/sql"

	"stageline/internal/domain"
)

func (r Repo) InsertArea(ctx context.Context, tx *sql.Tx, a domain.Area) (domain.Area, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO areas(name, description) VALUES (?,?)`, a.Name, nullable(a.Description))
	if err != nil {
		return a, err
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

func (r Repo) GetArea(ctx context.Context, tx *sql.Tx, id int64) (domain.Area, error) {
	var a domain.Area
	err := r.q(tx).QueryRowContext(ctx, `SELECT id, name, COALESCE(description,'') FROM areas WHERE id=?`, id).Scan(&a.ID, &a.Name, &a.Description)
	return a, notFound(err)
}

func (r Repo) ListAreas(ctx context.Context) ([]domain.Area, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, COALESCE(description,'') FROM areas ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Area{}
	for rows.Next() {
		var a domain.Area
		if err := rows.Scan(&a.ID, &a.Name, &a.Description); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) UpdateArea(ctx context.Context, tx *sql.Tx, a domain.Area) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE areas SET name=?, description=? WHERE id=?`, a.Name, nullable(a.Description), a.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeleteArea(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM areas WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) InsertCategory(ctx context.Context, tx *sql.Tx, c domain.Category) (domain.Category, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO categories(name, color) VALUES (?,?)`, c.Name, nullable(c.Color))
	if err != nil {
		return c, err
	}
	c.ID, err = res.LastInsertId()
	return c, err
}

func (r Repo) GetCategory(ctx context.Context, tx *sql.Tx, id int64) (domain.Category, error) {
	var c domain.Category
	err := r.q(tx).QueryRowContext(ctx, `SELECT id, name, COALESCE(color,'') FROM categories WHERE id=?`, id).Scan(&c.ID, &c.Name, &c.Color)
	return c, notFound(err)
}

func (r Repo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, COALESCE(color,'') FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateCategory(ctx context.Context, tx *sql.Tx, c domain.Category) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE categories SET name=?, color=? WHERE id=?`, c.Name, nullable(c.Color), c.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeleteCategory(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM categories WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
