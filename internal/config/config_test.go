package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Stages.DefaultName != "Inicio" {
		t.Fatalf("default stage name %q", cfg.Stages.DefaultName)
	}
	if len(cfg.Permissions("member")) == 0 {
		t.Fatalf("member role has no permissions")
	}
	if cfg.Permissions("ghost") != nil {
		t.Fatalf("unknown role should have no permissions")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.BasePath != "/v0" {
		t.Fatalf("base path %q", cfg.Server.BasePath)
	}
}

func TestLoadOverridesAndValidation(t *testing.T) {
	dir := t.TempDir()
	data := []byte("stages:\n  default_name: Backlog\nwebhooks:\n  - url: http://hooks.local/in\n    events: [stage.reordered]\n")
	if err := os.WriteFile(filepath.Join(dir, "stageline.yml"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stages.DefaultName != "Backlog" {
		t.Fatalf("default stage name %q", cfg.Stages.DefaultName)
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].Events[0] != "stage.reordered" {
		t.Fatalf("webhooks not parsed: %+v", cfg.Webhooks)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("logging default lost: %q", cfg.Logging.Level)
	}

	for name, raw := range map[string]string{
		"empty stage name": "stages:\n  default_name: \"\"\n",
		"bad level":        "logging:\n  level: loud\n",
		"hook without url": "webhooks:\n  - secret: x\n",
		"bad base path":    "server:\n  base_path: v0\n",
	} {
		if _, err := FromYAML([]byte(raw)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
