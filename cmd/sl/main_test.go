package main

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"stageline/internal/app"
)

var setupOnce sync.Once

func runCLI(t *testing.T, workspace string, args ...string) error {
	t.Helper()
	setupOnce.Do(func() {
		addPersistentFlags()
		registerCommands()
	})
	rootCmd.SetArgs(append([]string{"--workspace", workspace}, args...))
	return rootCmd.ExecuteContext(context.Background())
}

func TestCLIStageMoveFlow(t *testing.T) {
	ws := t.TempDir()
	steps := [][]string{
		{"init", "--admin-email", "admin@example.com"},
		{"project", "create", "--name", "CLI"},
		{"stage", "create", "1", "--name", "Next"},
		{"activity", "create", "2", "--title", "Wire it", "--status", "in_progress"},
		{"stage", "move", "2", "down"},
	}
	for _, args := range steps {
		if err := runCLI(t, ws, args...); err != nil {
			t.Fatalf("sl %s: %v", strings.Join(args, " "), err)
		}
	}
	if err := runCLI(t, ws, "stage", "move", "2", "sideways"); err == nil || !strings.Contains(err.Error(), "invalid toggle behavior") {
		t.Fatalf("expected invalid direction error, got %v", err)
	}

	a, err := app.Open(context.Background(), ws, io.Discard)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	defer a.Close()
	ctx := context.Background()
	st, err := a.Engine.GetStage(ctx, 2)
	if err != nil {
		t.Fatalf("get stage: %v", err)
	}
	if st.OrdinalNumber != 1 {
		t.Fatalf("expected stage 2 at ordinal 1, got %d", st.OrdinalNumber)
	}
	p, err := a.Engine.GetProject(ctx, 1)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if p.Status != "in_progress" {
		t.Fatalf("expected derived in_progress, got %s", p.Status)
	}
	users, err := a.Engine.ListUsers(ctx)
	if err != nil || len(users) != 1 || users[0].Role != "admin" {
		t.Fatalf("expected seeded admin, got %+v (%v)", users, err)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID(" 42 ", "stage"); err != nil || id != 42 {
		t.Fatalf("parse 42: %d %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "abc"} {
		if _, err := parseID(bad, "stage"); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
