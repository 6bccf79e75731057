package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"stageline/internal/config"
	"stageline/internal/db"
	"stageline/internal/engine"
	"stageline/internal/migrate"
)

type capturedDelivery struct {
	header http.Header
	body   []byte
}

func newWebhookEngine(t *testing.T, hooks []config.WebhookConfig) engine.Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.Webhooks = hooks
	return engine.New(conn, cfg, nil)
}

func TestWebhookDeliversSignedEventsFromCursor(t *testing.T) {
	var (
		mu         sync.Mutex
		deliveries []capturedDelivery
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		deliveries = append(deliveries, capturedDelivery{header: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer receiver.Close()

	e := newWebhookEngine(t, []config.WebhookConfig{{
		URL:    receiver.URL,
		Secret: "s3cret",
		Events: []string{"stage.reordered"},
	}})
	ctx := context.Background()
	p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{Name: "Hooks", ActorID: "test"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	d := newWebhookDispatcher(e, nil)
	if d == nil {
		t.Fatalf("expected dispatcher for configured webhook")
	}
	// Events before the first poll are history and must not be replayed.
	d.dispatchAll(ctx)
	mu.Lock()
	if len(deliveries) != 0 {
		mu.Unlock()
		t.Fatalf("expected no replay, got %d deliveries", len(deliveries))
	}
	mu.Unlock()

	st, err := e.CreateStage(ctx, engine.StageCreateOptions{ProjectID: p.ID, Name: "Next", ActorID: "test"})
	if err != nil {
		t.Fatalf("create stage: %v", err)
	}
	if _, err := e.ReorderStage(ctx, st.ID, "down", "test"); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	d.dispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(deliveries) != 1 {
		t.Fatalf("expected only the filtered event, got %d", len(deliveries))
	}
	got := deliveries[0]
	if got.header.Get("X-Stageline-Event") != "stage.reordered" {
		t.Fatalf("unexpected event header %q", got.header.Get("X-Stageline-Event"))
	}
	if want := "sha256=" + signPayload("s3cret", got.body); got.header.Get("X-Stageline-Signature") != want {
		t.Fatalf("signature mismatch: %q", got.header.Get("X-Stageline-Signature"))
	}
	if got.header.Get("X-Stageline-Delivery") == "" {
		t.Fatalf("missing delivery id")
	}
	var evt webhookEvent
	if err := json.Unmarshal(got.body, &evt); err != nil {
		t.Fatalf("unmarshal delivery: %v", err)
	}
	if evt.ProjectID == nil || *evt.ProjectID != p.ID || evt.EntityKind != "stage" {
		t.Fatalf("unexpected payload %s", string(got.body))
	}
}

func TestWebhookFailureKeepsCursor(t *testing.T) {
	var (
		fail  atomic.Bool
		calls atomic.Int32
	)
	fail.Store(true)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	e := newWebhookEngine(t, []config.WebhookConfig{{URL: receiver.URL}})
	ctx := context.Background()
	d := newWebhookDispatcher(e, nil)
	d.dispatchAll(ctx)

	if _, err := e.CreateProject(ctx, engine.ProjectCreateOptions{Name: "Retry", ActorID: "test"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	before := d.cursorFor(ctx, 0)
	d.dispatchAll(ctx)
	if d.cursorFor(ctx, 0) != before {
		t.Fatalf("cursor advanced past a failed delivery")
	}
	fail.Store(false)
	d.dispatchAll(ctx)
	latest, err := e.Repo.LatestEventID(ctx, 0)
	if err != nil {
		t.Fatalf("latest event: %v", err)
	}
	if d.cursorFor(ctx, 0) != latest {
		t.Fatalf("expected cursor %d, got %d", latest, d.cursorFor(ctx, 0))
	}
	if calls.Load() < 2 {
		t.Fatalf("expected a retry, got %d calls", calls.Load())
	}
}

func TestWebhookDispatcherDisabledWithoutHooks(t *testing.T) {
	e := newWebhookEngine(t, nil)
	if d := newWebhookDispatcher(e, nil); d != nil {
		t.Fatalf("expected no dispatcher without webhooks")
	}
	disabled := false
	e = newWebhookEngine(t, []config.WebhookConfig{{URL: "http://127.0.0.1:1", Enabled: &disabled}})
	d := newWebhookDispatcher(e, nil)
	d.dispatchAll(context.Background())
	if _, ok := d.cursors[0]; ok {
		t.Fatalf("disabled webhook should never be polled")
	}
}

func TestEventFilter(t *testing.T) {
	cases := []struct {
		events []string
		evt    string
		want   bool
	}{
		{nil, "project.created", true},
		{[]string{" "}, "project.created", true},
		{[]string{"stage.reordered"}, "stage.reordered", true},
		{[]string{"stage.reordered"}, "project.created", false},
	}
	for _, tc := range cases {
		if got := newEventFilter(tc.events).match(tc.evt); got != tc.want {
			t.Fatalf("filter %v match %q: got %v want %v", tc.events, tc.evt, got, tc.want)
		}
	}
}
