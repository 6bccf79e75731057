package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"stageline/internal/config"
	"stageline/internal/events"
	"stageline/internal/repo"
)

var (
	// ErrNotFound is the repository sentinel, re-exported for callers of the engine.
	ErrNotFound = repo.ErrNotFound
	// ErrInvalidArgument marks input the engine refuses before touching storage.
	ErrInvalidArgument = errors.New("invalid argument")
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Log    *log.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, logger *log.Logger) Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Log:    logger,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// realStamp keeps sub-second precision so real project dates never sort
// before the moment they were derived.
func (e Engine) realStamp() string {
	return e.now().UTC().Format(time.RFC3339Nano)
}

func (e Engine) logger() *log.Logger {
	if e.Log != nil {
		return e.Log
	}
	return log.New(io.Discard)
}

// writer stamps events with the engine clock so tests see fixed timestamps.
func (e Engine) writer() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

const dateLayout = "2006-01-02"

func validateDate(field, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		return invalidf("%s must be YYYY-MM-DD", field)
	}
	return nil
}

func validateDateRange(start, end string) error {
	if err := validateDate("start_date", start); err != nil {
		return err
	}
	if err := validateDate("end_date", end); err != nil {
		return err
	}
	if start != "" && end != "" && end < start {
		return invalidf("end_date %s is before start_date %s", end, start)
	}
	return nil
}

func validateTimestamp(field string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, *v); err != nil {
		return invalidf("%s must be RFC3339", field)
	}
	return nil
}

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalidf("%s is required", field)
	}
	return v, nil
}

// optionalID treats a pointer to 0 as an explicit clear.
func optionalID(v *int64) *int64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

// checkRefs turns dangling foreign keys into invalid-argument errors before the insert fails on them.
func (e Engine) checkRefs(ctx context.Context, tx *sql.Tx, userID, categoryID, areaID *int64) error {
	if id := optionalID(userID); id != nil {
		if _, err := e.Repo.GetUser(ctx, tx, *id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return invalidf("user %d does not exist", *id)
			}
			return err
		}
	}
	if id := optionalID(categoryID); id != nil {
		if _, err := e.Repo.GetCategory(ctx, tx, *id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return invalidf("category %d does not exist", *id)
			}
			return err
		}
	}
	if id := optionalID(areaID); id != nil {
		if _, err := e.Repo.GetArea(ctx, tx, *id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return invalidf("area %d does not exist", *id)
			}
			return err
		}
	}
	return nil
}
