package engine

import (
	"context"
	"errors"
	"fmt"

	"stageline/internal/domain"
	"stageline/internal/events"
	"stageline/internal/repo"
)

// applyStatus sets the status and clears the executed date it invalidates.
// Moving back to pending drops the start; moving to review drops the end.
func applyStatus(a *domain.Activity, status string) {
	a.Status = status
	switch status {
	case domain.ActivityPending:
		a.ExecutedStartDate = nil
	case domain.ActivityReview:
		a.ExecutedEndDate = nil
	}
}

type ActivityCreateOptions struct {
	StageID          int64
	Title            string
	Description      string
	Status           string
	Priority         string
	AssignedToUserID *int64
	StartDate        string
	EndDate          string
	ActorID          string
}

func (e Engine) CreateActivity(ctx context.Context, opts ActivityCreateOptions) (domain.Activity, error) {
	title, err := required("title", opts.Title)
	if err != nil {
		return domain.Activity{}, err
	}
	status := domain.ActivityPending
	if opts.Status != "" {
		if status, err = domain.NormalizeActivityStatus(opts.Status); err != nil {
			return domain.Activity{}, invalidf("%v", err)
		}
	}
	priority, err := domain.NormalizePriority(opts.Priority)
	if err != nil {
		return domain.Activity{}, invalidf("%v", err)
	}
	if err := validateDateRange(opts.StartDate, opts.EndDate); err != nil {
		return domain.Activity{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback()

	st, err := e.Repo.GetStage(ctx, tx, opts.StageID)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("stage %d: %w", opts.StageID, err)
	}
	if err := e.checkRefs(ctx, tx, opts.AssignedToUserID, nil, nil); err != nil {
		return domain.Activity{}, err
	}
	now := e.timestamp()
	a := domain.Activity{
		StageID:          st.ID,
		Title:            title,
		Description:      opts.Description,
		Priority:         priority,
		AssignedToUserID: optionalID(opts.AssignedToUserID),
		StartDate:        opts.StartDate,
		EndDate:          opts.EndDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	applyStatus(&a, status)
	a, err = e.Repo.InsertActivity(ctx, tx, a)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	if err := e.writer().Append(ctx, tx, events.ActivityCreated, st.ProjectID, "activity", a.ID, opts.ActorID, events.EventPayload{
		"title": a.Title, "status": a.Status, "stage_id": a.StageID,
	}); err != nil {
		return domain.Activity{}, err
	}
	if _, err := e.aggregateForActivity(ctx, tx, a.ID, opts.ActorID); err != nil {
		return domain.Activity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

func (e Engine) GetActivity(ctx context.Context, id int64) (domain.Activity, error) {
	return e.Repo.GetActivity(ctx, nil, id)
}

func (e Engine) ListActivities(ctx context.Context, stageID int64) ([]domain.Activity, error) {
	if _, err := e.Repo.GetStage(ctx, nil, stageID); err != nil {
		return nil, fmt.Errorf("stage %d: %w", stageID, err)
	}
	return e.Repo.ListActivities(ctx, nil, stageID)
}

// ActivityUpdateOptions is a partial patch. A pointer to an empty string
// clears an executed date; a pointer to 0 unassigns.
type ActivityUpdateOptions struct {
	ID                int64
	StageID           *int64
	Title             *string
	Description       *string
	Status            *string
	Priority          *string
	AssignedToUserID  *int64
	StartDate         *string
	EndDate           *string
	ExecutedStartDate *string
	ExecutedEndDate   *string
	ActorID           string
}

// UpdateActivity patches an activity. Moving it to a stage of another project
// recomputes both projects.
func (e Engine) UpdateActivity(ctx context.Context, opts ActivityUpdateOptions) (domain.Activity, error) {
	if err := validateTimestamp("executed_start_date", opts.ExecutedStartDate); err != nil {
		return domain.Activity{}, err
	}
	if err := validateTimestamp("executed_end_date", opts.ExecutedEndDate); err != nil {
		return domain.Activity{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback()

	a, err := e.Repo.GetActivity(ctx, tx, opts.ID)
	if err != nil {
		return domain.Activity{}, err
	}
	fromProject, err := e.Repo.FindProjectIDForActivity(ctx, tx, a.ID)
	if err != nil {
		return domain.Activity{}, err
	}
	from := a.Status
	if opts.StageID != nil && *opts.StageID != a.StageID {
		if _, err := e.Repo.GetStage(ctx, tx, *opts.StageID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Activity{}, invalidf("stage %d does not exist", *opts.StageID)
			}
			return domain.Activity{}, err
		}
		a.StageID = *opts.StageID
	}
	if opts.Title != nil {
		title, err := required("title", *opts.Title)
		if err != nil {
			return domain.Activity{}, err
		}
		a.Title = title
	}
	if opts.Description != nil {
		a.Description = *opts.Description
	}
	if opts.Priority != nil {
		p, err := domain.NormalizePriority(*opts.Priority)
		if err != nil {
			return domain.Activity{}, invalidf("%v", err)
		}
		a.Priority = p
	}
	if opts.AssignedToUserID != nil {
		a.AssignedToUserID = optionalID(opts.AssignedToUserID)
		if err := e.checkRefs(ctx, tx, a.AssignedToUserID, nil, nil); err != nil {
			return domain.Activity{}, err
		}
	}
	if opts.StartDate != nil {
		a.StartDate = *opts.StartDate
	}
	if opts.EndDate != nil {
		a.EndDate = *opts.EndDate
	}
	if err := validateDateRange(a.StartDate, a.EndDate); err != nil {
		return domain.Activity{}, err
	}
	if opts.ExecutedStartDate != nil {
		a.ExecutedStartDate = nonEmpty(*opts.ExecutedStartDate)
	}
	if opts.ExecutedEndDate != nil {
		a.ExecutedEndDate = nonEmpty(*opts.ExecutedEndDate)
	}
	if opts.Status != nil {
		status, err := domain.NormalizeActivityStatus(*opts.Status)
		if err != nil {
			return domain.Activity{}, invalidf("%v", err)
		}
		applyStatus(&a, status)
	}
	a.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateActivity(ctx, tx, a); err != nil {
		return domain.Activity{}, err
	}
	toProject, err := e.Repo.FindProjectIDForActivity(ctx, tx, a.ID)
	if err != nil {
		return domain.Activity{}, err
	}
	if err := e.writer().Append(ctx, tx, events.ActivityUpdated, toProject, "activity", a.ID, opts.ActorID, events.EventPayload{
		"from_status": from, "to_status": a.Status, "stage_id": a.StageID,
	}); err != nil {
		return domain.Activity{}, err
	}
	if fromProject != toProject {
		if _, err := e.aggregateProject(ctx, tx, fromProject, opts.ActorID); err != nil {
			return domain.Activity{}, err
		}
	}
	if _, err := e.aggregateProject(ctx, tx, toProject, opts.ActorID); err != nil {
		return domain.Activity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

// ApplyActivityStatusChange sets a new status, applies its executed-date
// effects and recomputes the owning project in the same transaction.
func (e Engine) ApplyActivityStatusChange(ctx context.Context, activityID int64, status, actorID string) (domain.Activity, error) {
	normalized, err := domain.NormalizeActivityStatus(status)
	if err != nil {
		return domain.Activity{}, invalidf("%v", err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback()

	a, err := e.Repo.GetActivity(ctx, tx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	from := a.Status
	applyStatus(&a, normalized)
	a.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateActivity(ctx, tx, a); err != nil {
		return domain.Activity{}, err
	}
	agg, err := e.aggregateForActivity(ctx, tx, a.ID, actorID)
	if err != nil {
		return domain.Activity{}, err
	}
	if err := e.writer().Append(ctx, tx, events.ActivityStatus, agg.ProjectID, "activity", a.ID, actorID, events.EventPayload{
		"from": from, "to": a.Status,
	}); err != nil {
		return domain.Activity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

// DeleteActivity resolves the owning project before the row disappears, then
// recomputes that project.
func (e Engine) DeleteActivity(ctx context.Context, id int64, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	projectID, err := e.Repo.FindProjectIDForActivity(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteActivity(ctx, tx, id); err != nil {
		return err
	}
	if err := e.writer().Append(ctx, tx, events.ActivityDeleted, projectID, "activity", id, actorID, nil); err != nil {
		return err
	}
	if _, err := e.aggregateProject(ctx, tx, projectID, actorID); err != nil {
		return err
	}
	return tx.Commit()
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

