package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"stageline/internal/db"
	"stageline/internal/domain"
	"stageline/internal/migrate"
)

const ts = "2024-01-01T00:00:00Z"

func newTestRepo(t *testing.T) (Repo, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Repo{DB: conn}, ctx
}

func seedProject(t *testing.T, r Repo, ctx context.Context, name string, stageCount int) (domain.Project, []domain.Stage) {
	t.Helper()
	p, err := r.InsertProject(ctx, nil, domain.Project{Name: name, Status: domain.ProjectPending, CreatedAt: ts, UpdatedAt: ts})
	if err != nil {
		t.Fatalf("insert project: %v", err)
	}
	var stages []domain.Stage
	for i := 1; i <= stageCount; i++ {
		st, err := r.InsertStage(ctx, nil, domain.Stage{ProjectID: p.ID, Name: name, OrdinalNumber: i, CreatedAt: ts, UpdatedAt: ts})
		if err != nil {
			t.Fatalf("insert stage: %v", err)
		}
		stages = append(stages, st)
	}
	return p, stages
}

func withTx(t *testing.T, r Repo, ctx context.Context, fn func(tx *sql.Tx) error) error {
	t.Helper()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func TestFindStageByOrdinalIsProjectScoped(t *testing.T) {
	r, ctx := newTestRepo(t)
	a, aStages := seedProject(t, r, ctx, "a", 2)
	b, _ := seedProject(t, r, ctx, "b", 1)

	got, err := r.FindStageByOrdinal(ctx, nil, a.ID, 2)
	if err != nil || got.ID != aStages[1].ID {
		t.Fatalf("expected stage %d, got %+v, %v", aStages[1].ID, got, err)
	}
	if _, err := r.FindStageByOrdinal(ctx, nil, b.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ordinal 2 of project b should not exist, got %v", err)
	}
	ord, err := r.GetStageOrdinal(ctx, nil, aStages[1].ID)
	if err != nil || ord != 2 {
		t.Fatalf("GetStageOrdinal = %d, %v", ord, err)
	}
	if _, err := r.GetStageOrdinal(ctx, nil, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUniqueOrdinalAndSwap(t *testing.T) {
	r, ctx := newTestRepo(t)
	p, stages := seedProject(t, r, ctx, "p", 2)
	if _, err := r.InsertStage(ctx, nil, domain.Stage{ProjectID: p.ID, Name: "dup", OrdinalNumber: 1, CreatedAt: ts, UpdatedAt: ts}); !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if err := r.UpdateStageOrdinal(ctx, nil, stages[0].ID, 2, ts); !IsUniqueViolation(err) {
		t.Fatalf("direct overwrite should hit the unique index, got %v", err)
	}
	err := withTx(t, r, ctx, func(tx *sql.Tx) error {
		return r.SwapStageOrdinals(ctx, tx, stages[0], stages[1], ts)
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	list, err := r.ListStages(ctx, nil, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if list[0].ID != stages[1].ID || list[1].ID != stages[0].ID {
		t.Fatalf("swap did not exchange ordinals: %+v", list)
	}
}

func TestCompactStageOrdinals(t *testing.T) {
	r, ctx := newTestRepo(t)
	p, stages := seedProject(t, r, ctx, "p", 4)
	err := withTx(t, r, ctx, func(tx *sql.Tx) error {
		if err := r.DeleteStage(ctx, tx, stages[1].ID); err != nil {
			return err
		}
		return r.CompactStageOrdinals(ctx, tx, p.ID, 2, ts)
	})
	if err != nil {
		t.Fatalf("delete and compact: %v", err)
	}
	list, err := r.ListStages(ctx, nil, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{stages[0].ID, stages[2].ID, stages[3].ID}
	for i, st := range list {
		if st.OrdinalNumber != i+1 || st.ID != want[i] {
			t.Fatalf("unexpected stage at %d: %+v", i, st)
		}
	}
}

func TestListStagesWithActivitiesAndProjectLookup(t *testing.T) {
	r, ctx := newTestRepo(t)
	p, stages := seedProject(t, r, ctx, "p", 2)
	var last domain.Activity
	for i, status := range []string{domain.ActivityCompleted, domain.ActivityReview, domain.ActivityPending} {
		a, err := r.InsertActivity(ctx, nil, domain.Activity{
			StageID: stages[i%2].ID, Title: status, Status: status, Priority: domain.PriorityMedium, CreatedAt: ts, UpdatedAt: ts,
		})
		if err != nil {
			t.Fatalf("insert activity: %v", err)
		}
		last = a
	}
	list, err := r.ListStagesWithActivities(ctx, nil, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || len(list[0].Activities) != 2 || len(list[1].Activities) != 1 {
		t.Fatalf("unexpected nesting: %+v", list)
	}
	if got := domain.TallyStages(list); got != (domain.Tally{Total: 3, Completed: 1, InProgress: 1, Pending: 1}) {
		t.Fatalf("unexpected tally %+v", got)
	}
	projectID, err := r.FindProjectIDForActivity(ctx, nil, last.ID)
	if err != nil || projectID != p.ID {
		t.Fatalf("FindProjectIDForActivity = %d, %v", projectID, err)
	}
	if _, err := r.FindProjectIDForActivity(ctx, nil, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateProjectStatusDateFields(t *testing.T) {
	r, ctx := newTestRepo(t)
	p, _ := seedProject(t, r, ctx, "p", 0)
	stamp := "2024-02-02T10:00:00Z"
	if err := r.UpdateProjectStatus(ctx, nil, p.ID, ProjectStatusUpdate{
		Status:      domain.ProjectReview,
		RealEndDate: DateField{Set: true, Value: &stamp},
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateProjectStatus(ctx, nil, p.ID, ProjectStatusUpdate{Status: domain.ProjectPending}); err != nil {
		t.Fatal(err)
	}
	got, err := r.GetProject(ctx, nil, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ProjectPending || got.RealEndDate == nil || *got.RealEndDate != stamp {
		t.Fatalf("unset date field must be left alone: %+v", got)
	}
	if err := r.UpdateProjectStatus(ctx, nil, p.ID, ProjectStatusUpdate{
		Status:      domain.ProjectInProgress,
		RealEndDate: DateField{Set: true},
	}); err != nil {
		t.Fatal(err)
	}
	got, _ = r.GetProject(ctx, nil, p.ID)
	if got.RealEndDate != nil {
		t.Fatalf("set nil date should clear, got %s", *got.RealEndDate)
	}
	if err := r.UpdateProjectStatus(ctx, nil, 999, ProjectStatusUpdate{Status: domain.ProjectPending}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEventsCursor(t *testing.T) {
	r, ctx := newTestRepo(t)
	for i, typ := range []string{"a", "b", "c"} {
		project := any(int64(1))
		if i == 2 {
			project = nil
		}
		if _, err := r.DB.ExecContext(ctx, `INSERT INTO events(ts,type,project_id,entity_kind,actor_id) VALUES (?,?,?,?,?)`, ts, typ, project, "project", "system"); err != nil {
			t.Fatal(err)
		}
	}
	latest, err := r.LatestEventID(ctx, 0)
	if err != nil || latest != 3 {
		t.Fatalf("LatestEventID = %d, %v", latest, err)
	}
	after, err := r.EventsAfter(ctx, 10, 1, 0)
	if err != nil || len(after) != 2 || after[0].Type != "b" {
		t.Fatalf("EventsAfter = %+v, %v", after, err)
	}
	scoped, err := r.EventsAfter(ctx, 10, 0, 1)
	if err != nil || len(scoped) != 2 {
		t.Fatalf("project scoped events = %+v, %v", scoped, err)
	}
	recent, err := r.ListEvents(ctx, 0, 1)
	if err != nil || len(recent) != 1 || recent[0].Type != "c" || recent[0].ProjectID != nil {
		t.Fatalf("ListEvents = %+v, %v", recent, err)
	}
}
