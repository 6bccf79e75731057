package repo

import (
	"context"
	"database/sql"

	"stageline/internal/domain"
)

const userColumns = `id,name,email,role,area_id,created_at`

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	var area sql.NullInt64
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &area, &u.CreatedAt); err != nil {
		return u, notFound(err)
	}
	u.AreaID = idPtr(area)
	return u, nil
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) (domain.User, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO users(name,email,role,area_id,created_at) VALUES (?,?,?,?,?)`,
		u.Name, u.Email, u.Role, nullableIDPtr(u.AreaID), u.CreatedAt)
	if err != nil {
		return u, err
	}
	u.ID, err = res.LastInsertId()
	return u, err
}

func (r Repo) GetUser(ctx context.Context, tx *sql.Tx, id int64) (domain.User, error) {
	return scanUser(r.q(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, tx *sql.Tx, email string) (domain.User, error) {
	return scanUser(r.q(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) UpdateUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE users SET name=?, email=?, role=?, area_id=? WHERE id=?`,
		u.Name, u.Email, u.Role, nullableIDPtr(u.AreaID), u.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeleteUser(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// CountUsers is used at bootstrap to decide whether to seed an admin.
func (r Repo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
