package engine

import (
	"context"
	"errors"
	"fmt"

	"stageline/internal/domain"
	"stageline/internal/events"
	"stageline/internal/repo"
)

type ProjectCreateOptions struct {
	Name          string
	Description   string
	StartDate     string
	EndDate       string
	ManagerUserID *int64
	CategoryID    *int64
	AreaID        *int64
	ActorID       string
}

// CreateProject stores a pending project together with its default stage.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	name, err := required("name", opts.Name)
	if err != nil {
		return domain.Project{}, err
	}
	if err := validateDateRange(opts.StartDate, opts.EndDate); err != nil {
		return domain.Project{}, err
	}
	now := e.timestamp()
	p := domain.Project{
		Name:          name,
		Description:   opts.Description,
		StartDate:     opts.StartDate,
		EndDate:       opts.EndDate,
		Status:        domain.ProjectPending,
		ManagerUserID: optionalID(opts.ManagerUserID),
		CategoryID:    optionalID(opts.CategoryID),
		AreaID:        optionalID(opts.AreaID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.checkRefs(ctx, tx, p.ManagerUserID, p.CategoryID, p.AreaID); err != nil {
		return domain.Project{}, err
	}
	p, err = e.Repo.InsertProject(ctx, tx, p)
	if err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	stageName, stageColor := "Inicio", ""
	if e.Config != nil {
		stageName, stageColor = e.Config.Stages.DefaultName, e.Config.Stages.DefaultColor
	}
	st, err := e.Repo.InsertStage(ctx, tx, domain.Stage{
		ProjectID:     p.ID,
		Name:          stageName,
		Color:         stageColor,
		OrdinalNumber: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return domain.Project{}, fmt.Errorf("insert default stage: %w", err)
	}
	w := e.writer()
	if err := w.Append(ctx, tx, events.ProjectCreated, p.ID, "project", p.ID, opts.ActorID, events.EventPayload{"name": p.Name, "status": p.Status}); err != nil {
		return domain.Project{}, err
	}
	if err := w.Append(ctx, tx, events.StageCreated, p.ID, "stage", st.ID, opts.ActorID, events.EventPayload{"name": st.Name, "ordinal": st.OrdinalNumber}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	e.logger().Info("project created", "project", p.ID, "name", p.Name)
	return p, nil
}

func (e Engine) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	return e.Repo.GetProject(ctx, nil, id)
}

func (e Engine) ListProjects(ctx context.Context, f repo.ProjectFilters) ([]domain.Project, error) {
	if f.Status != "" {
		switch f.Status {
		case domain.ProjectPending, domain.ProjectInProgress, domain.ProjectReview, domain.ProjectCompleted:
		default:
			return nil, invalidf("invalid project status %q", f.Status)
		}
	}
	return e.Repo.ListProjects(ctx, f)
}

// ProjectUpdateOptions patches the editable fields. Nil leaves a field alone;
// a pointer to 0 clears a reference.
type ProjectUpdateOptions struct {
	ID            int64
	Name          *string
	Description   *string
	StartDate     *string
	EndDate       *string
	ManagerUserID *int64
	CategoryID    *int64
	AreaID        *int64
	ActorID       string
}

func (e Engine) UpdateProject(ctx context.Context, opts ProjectUpdateOptions) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProject(ctx, tx, opts.ID)
	if err != nil {
		return domain.Project{}, err
	}
	changed := []string{}
	if opts.Name != nil {
		name, err := required("name", *opts.Name)
		if err != nil {
			return domain.Project{}, err
		}
		p.Name = name
		changed = append(changed, "name")
	}
	if opts.Description != nil {
		p.Description = *opts.Description
		changed = append(changed, "description")
	}
	if opts.StartDate != nil {
		p.StartDate = *opts.StartDate
		changed = append(changed, "start_date")
	}
	if opts.EndDate != nil {
		p.EndDate = *opts.EndDate
		changed = append(changed, "end_date")
	}
	if err := validateDateRange(p.StartDate, p.EndDate); err != nil {
		return domain.Project{}, err
	}
	if opts.ManagerUserID != nil {
		p.ManagerUserID = optionalID(opts.ManagerUserID)
		changed = append(changed, "manager_user_id")
	}
	if opts.CategoryID != nil {
		p.CategoryID = optionalID(opts.CategoryID)
		changed = append(changed, "category_id")
	}
	if opts.AreaID != nil {
		p.AreaID = optionalID(opts.AreaID)
		changed = append(changed, "area_id")
	}
	if err := e.checkRefs(ctx, tx, p.ManagerUserID, p.CategoryID, p.AreaID); err != nil {
		return domain.Project{}, err
	}
	p.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateProjectDetails(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.writer().Append(ctx, tx, events.ProjectUpdated, p.ID, "project", p.ID, opts.ActorID, events.EventPayload{"fields": changed}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// CompleteProject is the only path to the completed status.
func (e Engine) CompleteProject(ctx context.Context, id int64, actorID string) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProject(ctx, tx, id)
	if err != nil {
		return domain.Project{}, err
	}
	now, updated := e.realStamp(), e.timestamp()
	if err := e.Repo.UpdateProjectStatus(ctx, tx, id, repo.ProjectStatusUpdate{
		Status:      domain.ProjectCompleted,
		RealEndDate: repo.DateField{Set: true, Value: &now},
		UpdatedAt:   updated,
	}); err != nil {
		return domain.Project{}, err
	}
	if err := e.writer().Append(ctx, tx, events.ProjectCompleted, id, "project", id, actorID, events.EventPayload{"from": p.Status}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	p.Status = domain.ProjectCompleted
	p.RealEndDate = &now
	p.UpdatedAt = updated
	e.logger().Info("project completed", "project", id)
	return p, nil
}

func (e Engine) ArchiveProject(ctx context.Context, id int64, actorID string) (domain.Project, error) {
	return e.setArchived(ctx, id, true, actorID)
}

func (e Engine) UnarchiveProject(ctx context.Context, id int64, actorID string) (domain.Project, error) {
	return e.setArchived(ctx, id, false, actorID)
}

func (e Engine) setArchived(ctx context.Context, id int64, archived bool, actorID string) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProject(ctx, tx, id)
	if err != nil {
		return domain.Project{}, err
	}
	now := e.timestamp()
	if err := e.Repo.SetProjectArchived(ctx, tx, id, archived, now); err != nil {
		return domain.Project{}, err
	}
	evt := events.ProjectUnarchived
	if archived {
		evt = events.ProjectArchived
	}
	if err := e.writer().Append(ctx, tx, evt, id, "project", id, actorID, nil); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	p.Archived = archived
	p.UpdatedAt = now
	return p, nil
}

// DeleteProject removes the project; stages and activities cascade.
func (e Engine) DeleteProject(ctx context.Context, id int64, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProject(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteProject(ctx, tx, id); err != nil {
		return err
	}
	if err := e.writer().Append(ctx, tx, events.ProjectDeleted, id, "project", id, actorID, events.EventPayload{"name": p.Name}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.logger().Info("project deleted", "project", id)
	return nil
}

// Board is the kanban view: stages in ordinal order with their activities.
type Board struct {
	Project domain.Project `json:"project"`
	Stages  []domain.Stage `json:"stages"`
}

func (e Engine) Board(ctx context.Context, projectID int64) (Board, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Board{}, err
	}
	defer tx.Rollback()
	p, err := e.Repo.GetProject(ctx, tx, projectID)
	if err != nil {
		return Board{}, err
	}
	stages, err := e.Repo.ListStagesWithActivities(ctx, tx, projectID)
	if err != nil {
		return Board{}, err
	}
	return Board{Project: p, Stages: stages}, nil
}

// Timeline is the gantt view: every activity with its stage placement.
type Timeline struct {
	Project domain.Project        `json:"project"`
	Items   []domain.TimelineItem `json:"items"`
}

func (e Engine) Timeline(ctx context.Context, projectID int64) (Timeline, error) {
	board, err := e.Board(ctx, projectID)
	if err != nil {
		return Timeline{}, err
	}
	items := []domain.TimelineItem{}
	for _, st := range board.Stages {
		for _, a := range st.Activities {
			items = append(items, domain.TimelineItem{
				ActivityID:        a.ID,
				Title:             a.Title,
				Status:            a.Status,
				StageID:           st.ID,
				StageName:         st.Name,
				StageOrdinal:      st.OrdinalNumber,
				AssignedToUserID:  a.AssignedToUserID,
				StartDate:         a.StartDate,
				EndDate:           a.EndDate,
				ExecutedStartDate: a.ExecutedStartDate,
				ExecutedEndDate:   a.ExecutedEndDate,
			})
		}
	}
	return Timeline{Project: board.Project, Items: items}, nil
}

type Summary struct {
	ProjectID     int64        `json:"project_id"`
	Status        string       `json:"status"`
	Archived      bool         `json:"archived"`
	Stages        int          `json:"stages"`
	Tally         domain.Tally `json:"tally"`
	DerivedStatus string       `json:"derived_status"`
}

// Summary reports the stored status next to what the rules would derive now.
func (e Engine) Summary(ctx context.Context, projectID int64) (Summary, error) {
	board, err := e.Board(ctx, projectID)
	if err != nil {
		return Summary{}, err
	}
	tally := domain.TallyStages(board.Stages)
	derived, _ := domain.DeriveProjectStatus(tally)
	return Summary{
		ProjectID:     projectID,
		Status:        board.Project.Status,
		Archived:      board.Project.Archived,
		Stages:        len(board.Stages),
		Tally:         tally,
		DerivedStatus: derived,
	}, nil
}

func (e Engine) requireProject(ctx context.Context, id int64) error {
	_, err := e.Repo.GetProject(ctx, nil, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundf("project %d", id)
	}
	return err
}
