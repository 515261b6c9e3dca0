package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewUsesDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.DBPath != filepath.Join(dir, "nightwatch.db") {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
	if cfg.Classifier.Backend != BackendPlugin || cfg.Classifier.Plugin != "replay" {
		t.Fatalf("unexpected classifier defaults: %+v", cfg.Classifier)
	}
	if cfg.Overlay.Listen != "127.0.0.1:9002" {
		t.Fatalf("unexpected overlay listen: %s", cfg.Overlay.Listen)
	}
}

func TestNewReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	raw := `
db_path: runs.db
log:
  level: debug
  file: logs/nightwatch.log
classifier:
  backend: http
  endpoint: http://127.0.0.1:3400/detectGameStateFlow
capture:
  command: ["grim", "-"]
`
	if err := os.WriteFile(filepath.Join(dir, "nightwatch.yaml"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.DBPath != filepath.Join(dir, "runs.db") {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
	if cfg.Log.Level != "debug" || cfg.LogFilePath() != filepath.Join(dir, "logs", "nightwatch.log") {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Classifier.Backend != BackendHTTP {
		t.Fatalf("expected http backend, got %s", cfg.Classifier.Backend)
	}
	if len(cfg.Capture.Command) != 2 || cfg.Capture.Command[0] != "grim" {
		t.Fatalf("unexpected capture command: %v", cfg.Capture.Command)
	}
	if cfg.Log.MaxBackups != 3 {
		t.Fatalf("defaults must survive partial yaml, got max backups %d", cfg.Log.MaxBackups)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default("/tmp/nw")
	env := map[string]string{
		"NIGHTWATCH_CLASSIFIER_BACKEND":  "http",
		"NIGHTWATCH_CLASSIFIER_ENDPOINT": "http://vision.local/flow",
		"NIGHTWATCH_CAPTURE_COMMAND":     "screencapture -x -t png /dev/stdout",
		"NIGHTWATCH_LOG_MAX_SIZE_MB":     "42",
	}
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Classifier.Endpoint != "http://vision.local/flow" || cfg.Log.MaxSizeMB != 42 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if len(cfg.Capture.Command) != 5 {
		t.Fatalf("expected capture command split into fields, got %v", cfg.Capture.Command)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bad := Default("/tmp/nw")
	if err := bad.applyEnv(func(k string) string {
		if k == "NIGHTWATCH_LOG_MAX_SIZE_MB" {
			return "lots"
		}
		return ""
	}); err == nil {
		t.Fatalf("expected parse error for non-numeric size")
	}
}

func TestValidateRejectsInvalidCombinations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Classifier.Backend = "carrier-pigeon" }},
		{"http without endpoint", func(c *Config) { c.Classifier.Backend = BackendHTTP }},
		{"plugin without name", func(c *Config) { c.Classifier.Plugin = "" }},
		{"command and file", func(c *Config) {
			c.Capture.Command = []string{"grim", "-"}
			c.Capture.File = "shot.png"
		}},
	}
	for _, tc := range cases {
		cfg := Default("/tmp/nw")
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestNewRequiresDataDir(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty data dir")
	}
}
