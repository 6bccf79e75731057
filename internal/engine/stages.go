package engine

import (
	"context"
	"errors"
	"fmt"

	"stageline/internal/domain"
	"stageline/internal/events"
	"stageline/internal/repo"
)

type StageCreateOptions struct {
	ProjectID   int64
	Name        string
	Description string
	Color       string
	Status      string
	ActorID     string
}

// CreateStage appends a stage after the project's current last one.
func (e Engine) CreateStage(ctx context.Context, opts StageCreateOptions) (domain.Stage, error) {
	name, err := required("name", opts.Name)
	if err != nil {
		return domain.Stage{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Stage{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProject(ctx, tx, opts.ProjectID); err != nil {
		return domain.Stage{}, fmt.Errorf("project %d: %w", opts.ProjectID, err)
	}
	last, err := e.Repo.MaxStageOrdinal(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.Stage{}, err
	}
	color := opts.Color
	if color == "" && e.Config != nil {
		color = e.Config.Stages.DefaultColor
	}
	now := e.timestamp()
	st, err := e.Repo.InsertStage(ctx, tx, domain.Stage{
		ProjectID:     opts.ProjectID,
		Name:          name,
		Description:   opts.Description,
		Color:         color,
		Status:        opts.Status,
		OrdinalNumber: last + 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return domain.Stage{}, fmt.Errorf("insert stage: %w", err)
	}
	if err := e.writer().Append(ctx, tx, events.StageCreated, st.ProjectID, "stage", st.ID, opts.ActorID, events.EventPayload{"name": st.Name, "ordinal": st.OrdinalNumber}); err != nil {
		return domain.Stage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Stage{}, err
	}
	return st, nil
}

func (e Engine) GetStage(ctx context.Context, id int64) (domain.Stage, error) {
	return e.Repo.GetStage(ctx, nil, id)
}

func (e Engine) ListStages(ctx context.Context, projectID int64) ([]domain.Stage, error) {
	if err := e.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListStages(ctx, nil, projectID)
}

type StageUpdateOptions struct {
	ID          int64
	Name        *string
	Description *string
	Color       *string
	Status      *string
	ActorID     string
}

// UpdateStage edits the descriptive fields. Ordinals only move through ReorderStage.
func (e Engine) UpdateStage(ctx context.Context, opts StageUpdateOptions) (domain.Stage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Stage{}, err
	}
	defer tx.Rollback()

	st, err := e.Repo.GetStage(ctx, tx, opts.ID)
	if err != nil {
		return domain.Stage{}, err
	}
	if opts.Name != nil {
		name, err := required("name", *opts.Name)
		if err != nil {
			return domain.Stage{}, err
		}
		st.Name = name
	}
	if opts.Description != nil {
		st.Description = *opts.Description
	}
	if opts.Color != nil {
		st.Color = *opts.Color
	}
	if opts.Status != nil {
		st.Status = *opts.Status
	}
	st.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateStage(ctx, tx, st); err != nil {
		return domain.Stage{}, err
	}
	if err := e.writer().Append(ctx, tx, events.StageUpdated, st.ProjectID, "stage", st.ID, opts.ActorID, events.EventPayload{"name": st.Name}); err != nil {
		return domain.Stage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Stage{}, err
	}
	return st, nil
}

// DeleteStage removes a stage with its activities, closes the ordinal gap and
// recomputes the project status.
func (e Engine) DeleteStage(ctx context.Context, id int64, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st, err := e.Repo.GetStage(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteStage(ctx, tx, id); err != nil {
		return err
	}
	now := e.timestamp()
	if err := e.Repo.CompactStageOrdinals(ctx, tx, st.ProjectID, st.OrdinalNumber, now); err != nil {
		return fmt.Errorf("compact ordinals: %w", err)
	}
	if err := e.writer().Append(ctx, tx, events.StageDeleted, st.ProjectID, "stage", st.ID, actorID, events.EventPayload{"name": st.Name, "ordinal": st.OrdinalNumber}); err != nil {
		return err
	}
	if _, err := e.aggregateProject(ctx, tx, st.ProjectID, actorID); err != nil {
		return err
	}
	return tx.Commit()
}

// ReorderStage swaps a stage with its neighbor. "up" targets ordinal+1, toward
// the end of the board; "down" targets ordinal-1. The neighbor is looked up in
// the same project and both ordinals change in one transaction.
func (e Engine) ReorderStage(ctx context.Context, stageID int64, direction, actorID string) (domain.Stage, error) {
	dir, ok := domain.ParseDirection(direction)
	if !ok {
		return domain.Stage{}, invalidf("invalid toggle behavior %q", direction)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Stage{}, err
	}
	defer tx.Rollback()

	st, err := e.Repo.GetStage(ctx, tx, stageID)
	if err != nil {
		return domain.Stage{}, err
	}
	current, err := e.Repo.GetStageOrdinal(ctx, tx, stageID)
	if err != nil {
		return domain.Stage{}, err
	}
	target := dir.NeighborOrdinal(current)
	neighbor, err := e.Repo.FindStageByOrdinal(ctx, tx, st.ProjectID, target)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Stage{}, notFoundf("no stage found with the new ordinal number %d", target)
		}
		return domain.Stage{}, err
	}
	now := e.timestamp()
	st.OrdinalNumber = current
	if err := e.Repo.SwapStageOrdinals(ctx, tx, st, neighbor, now); err != nil {
		return domain.Stage{}, fmt.Errorf("swap ordinals: %w", err)
	}
	if err := e.writer().Append(ctx, tx, events.StageReordered, st.ProjectID, "stage", st.ID, actorID, events.EventPayload{
		"direction":    string(dir),
		"from":         current,
		"to":           target,
		"swapped_with": neighbor.ID,
	}); err != nil {
		return domain.Stage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Stage{}, err
	}
	st.OrdinalNumber = target
	st.UpdatedAt = now
	e.logger().Info("stage reordered", "stage", st.ID, "project", st.ProjectID, "direction", dir, "from", current, "to", target)
	return st, nil
}
