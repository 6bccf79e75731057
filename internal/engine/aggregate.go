package engine

import (
	"context"
	"database/sql"
	"fmt"

	"stageline/internal/domain"
	"stageline/internal/events"
	"stageline/internal/repo"
)

// Aggregation reports one run of the project status rules.
type Aggregation struct {
	ProjectID int64        `json:"project_id"`
	From      string       `json:"from"`
	To        string       `json:"to"`
	Tally     domain.Tally `json:"tally"`
}

// TriggerAggregation recomputes the status of the project owning activityID
// in a transaction of its own.
func (e Engine) TriggerAggregation(ctx context.Context, activityID int64, actorID string) (Aggregation, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Aggregation{}, err
	}
	defer tx.Rollback()
	agg, err := e.aggregateForActivity(ctx, tx, activityID, actorID)
	if err != nil {
		return Aggregation{}, err
	}
	if err := tx.Commit(); err != nil {
		return Aggregation{}, err
	}
	return agg, nil
}

// RecomputeProject runs the status rules for a project directly.
func (e Engine) RecomputeProject(ctx context.Context, projectID int64, actorID string) (Aggregation, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Aggregation{}, err
	}
	defer tx.Rollback()
	agg, err := e.aggregateProject(ctx, tx, projectID, actorID)
	if err != nil {
		return Aggregation{}, err
	}
	if err := tx.Commit(); err != nil {
		return Aggregation{}, err
	}
	return agg, nil
}

func (e Engine) aggregateForActivity(ctx context.Context, tx *sql.Tx, activityID int64, actorID string) (Aggregation, error) {
	projectID, err := e.Repo.FindProjectIDForActivity(ctx, tx, activityID)
	if err != nil {
		return Aggregation{}, fmt.Errorf("resolve project for activity %d: %w", activityID, err)
	}
	return e.aggregateProject(ctx, tx, projectID, actorID)
}

// aggregateProject re-reads every stage and activity of the project and writes
// the derived status. Archived flags, stages and activities are never written.
func (e Engine) aggregateProject(ctx context.Context, tx *sql.Tx, projectID int64, actorID string) (Aggregation, error) {
	p, err := e.Repo.GetProject(ctx, tx, projectID)
	if err != nil {
		return Aggregation{}, fmt.Errorf("load project %d: %w", projectID, err)
	}
	stages, err := e.Repo.ListStagesWithActivities(ctx, tx, projectID)
	if err != nil {
		return Aggregation{}, err
	}
	tally := domain.TallyStages(stages)
	status, effect := domain.DeriveProjectStatus(tally)
	now := e.realStamp()
	update := repo.ProjectStatusUpdate{Status: status, UpdatedAt: e.timestamp()}
	switch effect {
	case domain.StampEnd:
		update.RealEndDate = repo.DateField{Set: true, Value: &now}
	case domain.StampStartClearEnd:
		update.RealStartDate = repo.DateField{Set: true, Value: &now}
		update.RealEndDate = repo.DateField{Set: true}
	}
	if err := e.Repo.UpdateProjectStatus(ctx, tx, projectID, update); err != nil {
		return Aggregation{}, err
	}
	agg := Aggregation{ProjectID: projectID, From: p.Status, To: status, Tally: tally}
	if p.Status != status {
		if err := e.writer().Append(ctx, tx, events.ProjectStatusDerived, projectID, "project", projectID, actorID, events.EventPayload{
			"from":        p.Status,
			"to":          status,
			"total":       tally.Total,
			"completed":   tally.Completed,
			"in_progress": tally.InProgress,
		}); err != nil {
			return Aggregation{}, err
		}
		e.logger().Debug("project status derived", "project", projectID, "from", p.Status, "to", status,
			"total", tally.Total, "completed", tally.Completed, "in_progress", tally.InProgress)
	}
	return agg, nil
}
