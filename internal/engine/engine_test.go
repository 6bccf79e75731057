package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"stageline/internal/config"
	"stageline/internal/db"
	"stageline/internal/domain"
	"stageline/internal/engine"
	"stageline/internal/events"
	"stageline/internal/migrate"
	"stageline/internal/repo"
)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const fixedStamp = "2024-01-01T00:00:00Z"

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default(), nil)
	eng.Now = func() time.Time { return fixedNow }
	return testEnv{Engine: eng, Ctx: ctx}
}

func (env testEnv) project(t *testing.T, name string) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: name, ActorID: "tester"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// stages returns the project's stages; the first is the default one.
func (env testEnv) stages(t *testing.T, projectID int64, extra ...string) []domain.Stage {
	t.Helper()
	for _, name := range extra {
		if _, err := env.Engine.CreateStage(env.Ctx, engine.StageCreateOptions{ProjectID: projectID, Name: name, ActorID: "tester"}); err != nil {
			t.Fatalf("create stage %s: %v", name, err)
		}
	}
	list, err := env.Engine.ListStages(env.Ctx, projectID)
	if err != nil {
		t.Fatalf("list stages: %v", err)
	}
	return list
}

func (env testEnv) activity(t *testing.T, stageID int64, title, status string) domain.Activity {
	t.Helper()
	a, err := env.Engine.CreateActivity(env.Ctx, engine.ActivityCreateOptions{StageID: stageID, Title: title, Status: status, ActorID: "tester"})
	if err != nil {
		t.Fatalf("create activity %s: %v", title, err)
	}
	return a
}

func (env testEnv) reload(t *testing.T, id int64) domain.Project {
	t.Helper()
	p, err := env.Engine.GetProject(env.Ctx, id)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	return p
}

func (env testEnv) ordinals(t *testing.T, projectID int64) map[int64]int {
	t.Helper()
	list, err := env.Engine.ListStages(env.Ctx, projectID)
	if err != nil {
		t.Fatalf("list stages: %v", err)
	}
	res := map[int64]int{}
	for _, st := range list {
		res[st.ID] = st.OrdinalNumber
	}
	return res
}

func TestCreateProjectSeedsDefaultStage(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Roadmap")
	if p.Status != domain.ProjectPending || p.Archived {
		t.Fatalf("unexpected new project %+v", p)
	}
	list := env.stages(t, p.ID)
	if len(list) != 1 || list[0].Name != "Inicio" || list[0].OrdinalNumber != 1 {
		t.Fatalf("expected default stage, got %+v", list)
	}
	evts, err := env.Engine.ListEvents(env.Ctx, p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 2 || evts[0].Type != events.StageCreated || evts[1].Type != events.ProjectCreated {
		t.Fatalf("unexpected events %+v", evts)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	missing := int64(99)
	cases := map[string]engine.ProjectCreateOptions{
		"empty name":       {Name: "  "},
		"bad date":         {Name: "p", StartDate: "01/02/2024"},
		"end before start": {Name: "p", StartDate: "2024-03-01", EndDate: "2024-02-01"},
		"unknown manager":  {Name: "p", ManagerUserID: &missing},
	}
	for name, opts := range cases {
		if _, err := env.Engine.CreateProject(env.Ctx, opts); !errors.Is(err, engine.ErrInvalidArgument) {
			t.Fatalf("%s: expected invalid argument, got %v", name, err)
		}
	}
}

func TestAggregationAllCompletedGoesToReview(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Launch")
	list := env.stages(t, p.ID, "Build")
	env.activity(t, list[0].ID, "A1", domain.ActivityCompleted)
	a2 := env.activity(t, list[1].ID, "A2", "done")
	if a2.Status != domain.ActivityCompleted {
		t.Fatalf("done alias not normalized: %s", a2.Status)
	}

	got := env.reload(t, p.ID)
	if got.Status != domain.ProjectReview {
		t.Fatalf("expected review, got %s", got.Status)
	}
	if got.RealEndDate == nil || *got.RealEndDate != fixedStamp {
		t.Fatalf("expected real end date stamped, got %v", got.RealEndDate)
	}

	later := fixedNow.Add(48 * time.Hour)
	env.Engine.Now = func() time.Time { return later }
	if _, err := env.Engine.ApplyActivityStatusChange(env.Ctx, a2.ID, domain.ActivityInProgress, "tester"); err != nil {
		t.Fatalf("status change: %v", err)
	}
	got = env.reload(t, p.ID)
	if got.Status != domain.ProjectInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}
	if got.RealEndDate != nil {
		t.Fatalf("real end date should be cleared, got %s", *got.RealEndDate)
	}
	if got.RealStartDate == nil || *got.RealStartDate != later.Format(time.RFC3339) {
		t.Fatalf("expected real start date %s, got %v", later.Format(time.RFC3339), got.RealStartDate)
	}
	sum, err := env.Engine.Summary(env.Ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Tally != (domain.Tally{Total: 2, Completed: 1, InProgress: 1}) {
		t.Fatalf("unexpected tally %+v", sum.Tally)
	}
}

func TestAggregationPendingFloor(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Empty")
	agg, err := env.Engine.RecomputeProject(env.Ctx, p.ID, "tester")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if agg.To != domain.ProjectPending || agg.Tally.Total != 0 {
		t.Fatalf("empty project should stay pending, got %+v", agg)
	}

	list := env.stages(t, p.ID)
	a := env.activity(t, list[0].ID, "only", domain.ActivityCompleted)
	if got := env.reload(t, p.ID); got.Status != domain.ProjectReview {
		t.Fatalf("expected review, got %s", got.Status)
	}
	if _, err := env.Engine.ApplyActivityStatusChange(env.Ctx, a.ID, "todo", "tester"); err != nil {
		t.Fatal(err)
	}
	got := env.reload(t, p.ID)
	if got.Status != domain.ProjectPending {
		t.Fatalf("all pending should derive pending, got %s", got.Status)
	}
	if got.RealEndDate == nil {
		t.Fatalf("pending must leave real dates untouched")
	}
}

func TestAggregationCountsReviewAsInProgress(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "QA")
	list := env.stages(t, p.ID)
	env.activity(t, list[0].ID, "waiting", domain.ActivityPending)
	env.activity(t, list[0].ID, "checking", domain.ActivityReview)
	if got := env.reload(t, p.ID); got.Status != domain.ProjectInProgress {
		t.Fatalf("review activity should count as in progress, got %s", got.Status)
	}
}

func TestTriggerAggregationIdempotent(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Repeat")
	list := env.stages(t, p.ID)
	a := env.activity(t, list[0].ID, "work", domain.ActivityInProgress)
	first, err := env.Engine.TriggerAggregation(env.Ctx, a.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.TriggerAggregation(env.Ctx, a.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if first.To != second.To || second.From != second.To || first.Tally != second.Tally {
		t.Fatalf("aggregation not idempotent: %+v vs %+v", first, second)
	}
	if _, err := env.Engine.TriggerAggregation(env.Ctx, 4242, "tester"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found for unknown activity, got %v", err)
	}
}

func TestAggregationLeavesArchivedFlag(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Old")
	list := env.stages(t, p.ID)
	a := env.activity(t, list[0].ID, "work", domain.ActivityPending)
	if _, err := env.Engine.ArchiveProject(env.Ctx, p.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.ApplyActivityStatusChange(env.Ctx, a.ID, domain.ActivityCompleted, "tester"); err != nil {
		t.Fatal(err)
	}
	got := env.reload(t, p.ID)
	if !got.Archived || got.Status != domain.ProjectReview {
		t.Fatalf("expected archived review project, got %+v", got)
	}
	if _, err := env.Engine.UnarchiveProject(env.Ctx, p.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	archived := true
	list2, err := env.Engine.ListProjects(env.Ctx, repo.ProjectFilters{Archived: &archived})
	if err != nil {
		t.Fatal(err)
	}
	if len(list2) != 0 {
		t.Fatalf("expected no archived projects, got %d", len(list2))
	}
}

func TestStatusChangeClearsExecutedDates(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Dates")
	list := env.stages(t, p.ID)
	a := env.activity(t, list[0].ID, "work", domain.ActivityCompleted)
	start, end := "2024-01-02T09:00:00Z", "2024-01-05T17:00:00Z"
	a, err := env.Engine.UpdateActivity(env.Ctx, engine.ActivityUpdateOptions{ID: a.ID, ExecutedStartDate: &start, ExecutedEndDate: &end})
	if err != nil {
		t.Fatalf("set executed dates: %v", err)
	}
	if a.ExecutedStartDate == nil || a.ExecutedEndDate == nil {
		t.Fatalf("executed dates not stored: %+v", a)
	}

	a, err = env.Engine.ApplyActivityStatusChange(env.Ctx, a.ID, domain.ActivityReview, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if a.ExecutedEndDate != nil || a.ExecutedStartDate == nil {
		t.Fatalf("review should clear only the end date: %+v", a)
	}

	a, err = env.Engine.ApplyActivityStatusChange(env.Ctx, a.ID, domain.ActivityPending, "tester")
	if err != nil {
		t.Fatal(err)
	}
	stored, err := env.Engine.GetActivity(env.Ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ExecutedStartDate != nil || stored.Status != domain.ActivityPending {
		t.Fatalf("pending should clear executed start: %+v", stored)
	}
	if got := env.reload(t, p.ID); got.Status != domain.ProjectPending {
		t.Fatalf("aggregation should follow the change, got %s", got.Status)
	}

	if _, err := env.Engine.ApplyActivityStatusChange(env.Ctx, a.ID, "blocked", "tester"); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestStatusChangeKeepsExecutedDates(t *testing.T) {
	start, end := "2024-01-02T09:00:00Z", "2024-01-05T17:00:00Z"
	for _, status := range []string{domain.ActivityInProgress, domain.ActivityCompleted, "done"} {
		t.Run(status, func(t *testing.T) {
			env := newTestEnv(t)
			p := env.project(t, "Keep "+status)
			list := env.stages(t, p.ID)
			a := env.activity(t, list[0].ID, "work", domain.ActivityReview)
			if _, err := env.Engine.UpdateActivity(env.Ctx, engine.ActivityUpdateOptions{ID: a.ID, ExecutedStartDate: &start, ExecutedEndDate: &end}); err != nil {
				t.Fatalf("set executed dates: %v", err)
			}
			if _, err := env.Engine.ApplyActivityStatusChange(env.Ctx, a.ID, status, "tester"); err != nil {
				t.Fatalf("status change: %v", err)
			}
			stored, err := env.Engine.GetActivity(env.Ctx, a.ID)
			if err != nil {
				t.Fatal(err)
			}
			if stored.ExecutedStartDate == nil || *stored.ExecutedStartDate != start {
				t.Fatalf("executed start changed: %v", stored.ExecutedStartDate)
			}
			if stored.ExecutedEndDate == nil || *stored.ExecutedEndDate != end {
				t.Fatalf("executed end changed: %v", stored.ExecutedEndDate)
			}
		})
	}
}

func TestReviewEndDateNotBeforeDerivation(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Now = time.Now
	p := env.project(t, "Clock")
	list := env.stages(t, p.ID)
	a := env.activity(t, list[0].ID, "work", domain.ActivityInProgress)

	ran := time.Now().UTC()
	if _, err := env.Engine.ApplyActivityStatusChange(env.Ctx, a.ID, domain.ActivityCompleted, "tester"); err != nil {
		t.Fatalf("status change: %v", err)
	}
	got := env.reload(t, p.ID)
	if got.Status != domain.ProjectReview || got.RealEndDate == nil {
		t.Fatalf("expected review with end date, got %s %v", got.Status, got.RealEndDate)
	}
	end, err := time.Parse(time.RFC3339Nano, *got.RealEndDate)
	if err != nil {
		t.Fatalf("parse real end date: %v", err)
	}
	if end.Before(ran) {
		t.Fatalf("real end date %s is before derivation at %s", end.Format(time.RFC3339Nano), ran.Format(time.RFC3339Nano))
	}
}

func TestReorderStageSwapsNeighbors(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Board")
	list := env.stages(t, p.ID, "S2", "S3")
	s1, s2, s3 := list[0], list[1], list[2]

	moved, err := env.Engine.ReorderStage(env.Ctx, s2.ID, "down", "tester")
	if err != nil {
		t.Fatalf("reorder s2 down: %v", err)
	}
	if moved.OrdinalNumber != 1 {
		t.Fatalf("s2 should be at 1, got %d", moved.OrdinalNumber)
	}
	ord := env.ordinals(t, p.ID)
	if ord[s1.ID] != 2 || ord[s2.ID] != 1 || ord[s3.ID] != 3 {
		t.Fatalf("unexpected ordinals after first swap %v", ord)
	}

	if _, err := env.Engine.ReorderStage(env.Ctx, s1.ID, "down", "tester"); err != nil {
		t.Fatalf("reorder s1 down: %v", err)
	}
	ord = env.ordinals(t, p.ID)
	if ord[s1.ID] != 1 || ord[s2.ID] != 2 {
		t.Fatalf("unexpected ordinals after second swap %v", ord)
	}

	_, err = env.Engine.ReorderStage(env.Ctx, s3.ID, "up", "tester")
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found past the last stage, got %v", err)
	}
	if after := env.ordinals(t, p.ID); fmt.Sprint(after) != fmt.Sprint(ord) {
		t.Fatalf("failed reorder changed ordinals: %v -> %v", ord, after)
	}

	if _, err := env.Engine.ReorderStage(env.Ctx, s1.ID, "sideways", "tester"); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := env.Engine.ReorderStage(env.Ctx, 999, "up", "tester"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found for unknown stage, got %v", err)
	}

	evts, err := env.Engine.ListEvents(env.Ctx, p.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 1 || evts[0].Type != events.StageReordered {
		t.Fatalf("expected stage.reordered as latest event, got %+v", evts)
	}
}

func TestReorderStaysInsideProject(t *testing.T) {
	env := newTestEnv(t)
	a := env.project(t, "A")
	env.stages(t, a.ID, "A2")
	b := env.project(t, "B")
	only := env.stages(t, b.ID)[0]
	if _, err := env.Engine.ReorderStage(env.Ctx, only.ID, "up", "tester"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("neighbor from another project must not be used, got %v", err)
	}
	ordA := env.ordinals(t, a.ID)
	for _, o := range ordA {
		if o < 1 || o > 2 {
			t.Fatalf("project A ordinals touched: %v", ordA)
		}
	}
}

func TestFailedSwapRollsBack(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Atomic")
	list := env.stages(t, p.ID, "S2")
	before := env.ordinals(t, p.ID)
	trigger := fmt.Sprintf(`CREATE TRIGGER block_neighbor BEFORE UPDATE OF ordinal_number ON stages
WHEN OLD.id = %d BEGIN SELECT RAISE(ABORT, 'neighbor locked'); END;`, list[0].ID)
	if _, err := env.Engine.DB.ExecContext(env.Ctx, trigger); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	if _, err := env.Engine.ReorderStage(env.Ctx, list[1].ID, "down", "tester"); err == nil {
		t.Fatalf("expected swap failure")
	}
	if after := env.ordinals(t, p.ID); fmt.Sprint(after) != fmt.Sprint(before) {
		t.Fatalf("ordinals changed after failed swap: %v -> %v", before, after)
	}
}

func TestDeleteStageCompactsAndReaggregates(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Compact")
	list := env.stages(t, p.ID, "S2", "S3")
	env.activity(t, list[0].ID, "todo", domain.ActivityPending)
	env.activity(t, list[1].ID, "doing", domain.ActivityInProgress)
	if got := env.reload(t, p.ID); got.Status != domain.ProjectInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}
	if err := env.Engine.DeleteStage(env.Ctx, list[1].ID, "tester"); err != nil {
		t.Fatalf("delete stage: %v", err)
	}
	ord := env.ordinals(t, p.ID)
	if len(ord) != 2 || ord[list[0].ID] != 1 || ord[list[2].ID] != 2 {
		t.Fatalf("ordinals not compacted: %v", ord)
	}
	if got := env.reload(t, p.ID); got.Status != domain.ProjectPending {
		t.Fatalf("expected pending after removing in-progress work, got %s", got.Status)
	}
	if _, err := env.Engine.ReorderStage(env.Ctx, list[2].ID, "down", "tester"); err != nil {
		t.Fatalf("reorder after compaction: %v", err)
	}
	if _, err := env.Engine.GetStage(env.Ctx, list[1].ID); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("deleted stage still readable: %v", err)
	}
}

func TestDeleteActivityReaggregates(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Trim")
	list := env.stages(t, p.ID)
	env.activity(t, list[0].ID, "done", domain.ActivityCompleted)
	doing := env.activity(t, list[0].ID, "doing", domain.ActivityInProgress)
	if err := env.Engine.DeleteActivity(env.Ctx, doing.ID, "tester"); err != nil {
		t.Fatalf("delete activity: %v", err)
	}
	if got := env.reload(t, p.ID); got.Status != domain.ProjectReview {
		t.Fatalf("expected review once only completed work remains, got %s", got.Status)
	}
	if err := env.Engine.DeleteActivity(env.Ctx, doing.ID, "tester"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestMoveActivityAcrossProjects(t *testing.T) {
	env := newTestEnv(t)
	a := env.project(t, "From")
	b := env.project(t, "To")
	from := env.stages(t, a.ID)[0]
	to := env.stages(t, b.ID)[0]
	act := env.activity(t, from.ID, "moving", domain.ActivityInProgress)
	moved, err := env.Engine.UpdateActivity(env.Ctx, engine.ActivityUpdateOptions{ID: act.ID, StageID: &to.ID})
	if err != nil {
		t.Fatalf("move activity: %v", err)
	}
	if moved.StageID != to.ID {
		t.Fatalf("activity not moved: %+v", moved)
	}
	if got := env.reload(t, a.ID); got.Status != domain.ProjectPending {
		t.Fatalf("source project should drop to pending, got %s", got.Status)
	}
	if got := env.reload(t, b.ID); got.Status != domain.ProjectInProgress {
		t.Fatalf("target project should be in_progress, got %s", got.Status)
	}
	missing := int64(777)
	if _, err := env.Engine.UpdateActivity(env.Ctx, engine.ActivityUpdateOptions{ID: act.ID, StageID: &missing}); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for unknown stage, got %v", err)
	}
}

func TestCompleteProjectAndReadModels(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "Ship")
	list := env.stages(t, p.ID, "Build")
	env.activity(t, list[1].ID, "b", domain.ActivityPending)
	env.activity(t, list[0].ID, "a", domain.ActivityCompleted)

	board, err := env.Engine.Board(env.Ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(board.Stages) != 2 || board.Stages[0].OrdinalNumber != 1 || len(board.Stages[0].Activities) != 1 || len(board.Stages[1].Activities) != 1 {
		t.Fatalf("unexpected board %+v", board)
	}
	tl, err := env.Engine.Timeline(env.Ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tl.Items) != 2 || tl.Items[0].StageOrdinal != 1 || tl.Items[1].StageName != "Build" {
		t.Fatalf("unexpected timeline %+v", tl.Items)
	}

	done, err := env.Engine.CompleteProject(env.Ctx, p.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != domain.ProjectCompleted || done.RealEndDate == nil {
		t.Fatalf("unexpected completed project %+v", done)
	}
	sum, err := env.Engine.Summary(env.Ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Status != domain.ProjectCompleted || sum.DerivedStatus != domain.ProjectPending || sum.Stages != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if _, err := env.Engine.Board(env.Ctx, 12345); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found board, got %v", err)
	}
	if err := env.Engine.DeleteProject(env.Ctx, p.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.GetStage(env.Ctx, list[1].ID); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("stages should cascade with project: %v", err)
	}
}

func TestUsersAndAPIKeys(t *testing.T) {
	env := newTestEnv(t)
	u, err := env.Engine.CreateUser(env.Ctx, engine.UserOptions{Name: "Ana", Email: "Ana@Example.com", Role: domain.RoleManager})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %s", u.Email)
	}
	if _, err := env.Engine.CreateUser(env.Ctx, engine.UserOptions{Name: "Dup", Email: "ana@example.com"}); !repo.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if _, err := env.Engine.CreateUser(env.Ctx, engine.UserOptions{Name: "X", Email: "x@example.com", Role: "owner"}); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	same, err := env.Engine.EnsureUser(env.Ctx, engine.UserOptions{Name: "Ana", Email: "ana@example.com"})
	if err != nil || same.ID != u.ID {
		t.Fatalf("ensure user returned %+v, %v", same, err)
	}

	key, secret, err := env.Engine.CreateAPIKey(env.Ctx, u.ID, "ci", "tester")
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	found, err := env.Engine.Repo.GetAPIKeyByHash(env.Ctx, repo.HashAPIKey(secret))
	if err != nil || found.ID != key.ID || found.UserID != u.ID {
		t.Fatalf("lookup by hash: %+v, %v", found, err)
	}
	if err := env.Engine.RevokeAPIKey(env.Ctx, key.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	keys, err := env.Engine.ListAPIKeys(env.Ctx, u.ID)
	if err != nil || len(keys) != 0 {
		t.Fatalf("expected no keys, got %v, %v", keys, err)
	}

	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Managed", ManagerUserID: &u.ID})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, u.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if got := env.reload(t, p.ID); got.ManagerUserID != nil {
		t.Fatalf("manager reference should be cleared, got %v", *got.ManagerUserID)
	}
}

func TestCatalogFilters(t *testing.T) {
	env := newTestEnv(t)
	area, err := env.Engine.CreateArea(env.Ctx, domain.Area{Name: "Ops"}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	cat, err := env.Engine.CreateCategory(env.Ctx, domain.Category{Name: "Infra", Color: "#333"}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "tagged", AreaID: &area.ID, CategoryID: &cat.ID}); err != nil {
		t.Fatal(err)
	}
	env.project(t, "plain")
	list, err := env.Engine.ListProjects(env.Ctx, repo.ProjectFilters{AreaID: area.ID, CategoryID: cat.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "tagged" {
		t.Fatalf("unexpected filtered projects %+v", list)
	}
	if _, err := env.Engine.ListProjects(env.Ctx, repo.ProjectFilters{Status: "lost"}); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected invalid status filter, got %v", err)
	}
	cat.Name = "Platform"
	if _, err := env.Engine.UpdateCategory(env.Ctx, cat, "tester"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteArea(env.Ctx, area.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	areas, _ := env.Engine.ListAreas(env.Ctx)
	if len(areas) != 0 {
		t.Fatalf("area not deleted: %+v", areas)
	}
}
