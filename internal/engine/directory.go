package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"stageline/internal/domain"
	"stageline/internal/events"
	"stageline/internal/repo"
)

type UserOptions struct {
	ID      int64
	Name    string
	Email   string
	Role    string
	AreaID  *int64
	ActorID string
}

func normalizeUser(opts UserOptions) (domain.User, error) {
	name, err := required("name", opts.Name)
	if err != nil {
		return domain.User{}, err
	}
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if !strings.Contains(email, "@") {
		return domain.User{}, invalidf("email %q is not valid", opts.Email)
	}
	role := opts.Role
	if role == "" {
		role = domain.RoleMember
	}
	if !domain.ValidRole(role) {
		return domain.User{}, invalidf("invalid role %q", opts.Role)
	}
	return domain.User{ID: opts.ID, Name: name, Email: email, Role: role, AreaID: optionalID(opts.AreaID)}, nil
}

func (e Engine) CreateUser(ctx context.Context, opts UserOptions) (domain.User, error) {
	u, err := normalizeUser(opts)
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := e.checkRefs(ctx, tx, nil, nil, u.AreaID); err != nil {
		return domain.User{}, err
	}
	u, err = e.Repo.InsertUser(ctx, tx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if err := e.writer().Append(ctx, tx, events.UserCreated, 0, "user", u.ID, opts.ActorID, events.EventPayload{"email": u.Email, "role": u.Role}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// EnsureUser returns the user with email, creating it when absent.
func (e Engine) EnsureUser(ctx context.Context, opts UserOptions) (domain.User, error) {
	u, err := e.Repo.GetUserByEmail(ctx, nil, strings.ToLower(strings.TrimSpace(opts.Email)))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	return e.CreateUser(ctx, opts)
}

func (e Engine) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return e.Repo.GetUser(ctx, nil, id)
}

func (e Engine) ListUsers(ctx context.Context) ([]domain.User, error) {
	return e.Repo.ListUsers(ctx)
}

func (e Engine) UpdateUser(ctx context.Context, opts UserOptions) (domain.User, error) {
	u, err := normalizeUser(opts)
	if err != nil {
		return domain.User{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	existing, err := e.Repo.GetUser(ctx, tx, opts.ID)
	if err != nil {
		return domain.User{}, err
	}
	if err := e.checkRefs(ctx, tx, nil, nil, u.AreaID); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = existing.CreatedAt
	if err := e.Repo.UpdateUser(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	if err := e.writer().Append(ctx, tx, events.UserUpdated, 0, "user", u.ID, opts.ActorID, events.EventPayload{"role": u.Role}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// DeleteUser removes a user. Projects and activities referencing it keep existing with the reference cleared.
func (e Engine) DeleteUser(ctx context.Context, id int64, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteUser(ctx, tx, id); err != nil {
		return err
	}
	if err := e.writer().Append(ctx, tx, events.UserDeleted, 0, "user", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateAPIKey mints a key for a user. The plaintext is returned once; only its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, userID int64, name, actorID string) (domain.APIKey, string, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetUser(ctx, tx, userID); err != nil {
		return domain.APIKey{}, "", fmt.Errorf("user %d: %w", userID, err)
	}
	secret := "sl_" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		KeyHash:   repo.HashAPIKey(secret),
		CreatedAt: e.timestamp(),
	}
	if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := e.writer().Append(ctx, tx, events.APIKeyCreated, 0, "user", userID, actorID, events.EventPayload{"key_id": key.ID, "name": key.Name}); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, secret, nil
}

func (e Engine) ListAPIKeys(ctx context.Context, userID int64) ([]domain.APIKey, error) {
	return e.Repo.ListAPIKeys(ctx, userID)
}

func (e Engine) RevokeAPIKey(ctx context.Context, id, actorID string) error {
	if err := e.Repo.DeleteAPIKey(ctx, id); err != nil {
		return err
	}
	e.logger().Info("api key revoked", "key", id, "actor", actorID)
	return nil
}

func (e Engine) CreateArea(ctx context.Context, a domain.Area, actorID string) (domain.Area, error) {
	name, err := required("name", a.Name)
	if err != nil {
		return domain.Area{}, err
	}
	a.Name = name
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Area{}, err
	}
	defer tx.Rollback()
	a, err = e.Repo.InsertArea(ctx, tx, a)
	if err != nil {
		return domain.Area{}, err
	}
	if err := e.writer().Append(ctx, tx, events.CatalogChanged, 0, "area", a.ID, actorID, events.EventPayload{"op": "create", "name": a.Name}); err != nil {
		return domain.Area{}, err
	}
	return a, tx.Commit()
}

func (e Engine) ListAreas(ctx context.Context) ([]domain.Area, error) {
	return e.Repo.ListAreas(ctx)
}

func (e Engine) UpdateArea(ctx context.Context, a domain.Area, actorID string) (domain.Area, error) {
	name, err := required("name", a.Name)
	if err != nil {
		return domain.Area{}, err
	}
	a.Name = name
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Area{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateArea(ctx, tx, a); err != nil {
		return domain.Area{}, err
	}
	if err := e.writer().Append(ctx, tx, events.CatalogChanged, 0, "area", a.ID, actorID, events.EventPayload{"op": "update", "name": a.Name}); err != nil {
		return domain.Area{}, err
	}
	return a, tx.Commit()
}

func (e Engine) DeleteArea(ctx context.Context, id int64, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteArea(ctx, tx, id); err != nil {
		return err
	}
	if err := e.writer().Append(ctx, tx, events.CatalogChanged, 0, "area", id, actorID, events.EventPayload{"op": "delete"}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) CreateCategory(ctx context.Context, c domain.Category, actorID string) (domain.Category, error) {
	name, err := required("name", c.Name)
	if err != nil {
		return domain.Category{}, err
	}
	c.Name = name
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Category{}, err
	}
	defer tx.Rollback()
	c, err = e.Repo.InsertCategory(ctx, tx, c)
	if err != nil {
		return domain.Category{}, err
	}
	if err := e.writer().Append(ctx, tx, events.CatalogChanged, 0, "category", c.ID, actorID, events.EventPayload{"op": "create", "name": c.Name}); err != nil {
		return domain.Category{}, err
	}
	return c, tx.Commit()
}

func (e Engine) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return e.Repo.ListCategories(ctx)
}

func (e Engine) UpdateCategory(ctx context.Context, c domain.Category, actorID string) (domain.Category, error) {
	name, err := required("name", c.Name)
	if err != nil {
		return domain.Category{}, err
	}
	c.Name = name
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Category{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateCategory(ctx, tx, c); err != nil {
		return domain.Category{}, err
	}
	if err := e.writer().Append(ctx, tx, events.CatalogChanged, 0, "category", c.ID, actorID, events.EventPayload{"op": "update", "name": c.Name}); err != nil {
		return domain.Category{}, err
	}
	return c, tx.Commit()
}

func (e Engine) DeleteCategory(ctx context.Context, id int64, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteCategory(ctx, tx, id); err != nil {
		return err
	}
	if err := e.writer().Append(ctx, tx, events.CatalogChanged, 0, "category", id, actorID, events.EventPayload{"op": "delete"}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListEvents returns the newest events first; projectID 0 lists all projects.
func (e Engine) ListEvents(ctx context.Context, projectID int64, limit int) ([]domain.Event, error) {
	return e.Repo.ListEvents(ctx, projectID, limit)
}
