package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"stageline/internal/config"
	"stageline/internal/db"
	"stageline/internal/domain"
	"stageline/internal/engine"
	"stageline/internal/migrate"
)

// Context bundles what every command needs: an open, migrated workspace
// database, its config, a logger and the engine built on top of them.
type Context struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
	Log       *log.Logger
	Engine    engine.Engine
}

// NewLogger builds the text logger used across the binary. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "stageline",
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.TextFormatter,
	})
}

// Open loads the workspace config, opens the database and applies migrations.
func Open(ctx context.Context, workspace string, logOut io.Writer) (*Context, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := NewLogger(logOut, cfg.Logging.Level)
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Debug("workspace ready", "path", db.Path(workspace), "schema", version)
	return &Context{
		Workspace: workspace,
		DB:        conn,
		Config:    cfg,
		Log:       logger,
		Engine:    engine.New(conn, cfg, logger),
	}, nil
}

func (c *Context) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// SeedAdmin makes sure an admin exists so a fresh workspace can log in.
// It only creates one when the users table is empty.
func (c *Context) SeedAdmin(ctx context.Context, email, name string) (domain.User, bool, error) {
	n, err := c.Engine.Repo.CountUsers(ctx)
	if err != nil {
		return domain.User{}, false, err
	}
	if n > 0 {
		return domain.User{}, false, nil
	}
	if name == "" {
		name = "Administrator"
	}
	u, err := c.Engine.CreateUser(ctx, engine.UserOptions{Name: name, Email: email, Role: domain.RoleAdmin, ActorID: "system"})
	if err != nil {
		return domain.User{}, false, fmt.Errorf("seed admin: %w", err)
	}
	c.Log.Info("seeded admin user", "email", u.Email, "id", u.ID)
	return u, true, nil
}
