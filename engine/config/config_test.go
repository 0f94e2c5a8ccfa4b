package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Application.Name != "Cubes" {
		t.Errorf("default name = %q", cfg.Application.Name)
	}
	if cfg.Application.StartWidth != 1280 || cfg.Application.StartHeight != 720 {
		t.Errorf("default size = %dx%d", cfg.Application.StartWidth, cfg.Application.StartHeight)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[application]
name = "Scene"
start_width = 800
log_level = "debug"

[renderer]
enable_validation = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Application.Name != "Scene" {
		t.Errorf("name = %q, want Scene", cfg.Application.Name)
	}
	if cfg.Application.StartWidth != 800 {
		t.Errorf("width = %d, want 800", cfg.Application.StartWidth)
	}
	// Untouched keys keep their defaults.
	if cfg.Application.StartHeight != 720 {
		t.Errorf("height = %d, want default 720", cfg.Application.StartHeight)
	}
	if cfg.Application.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Application.LogLevel)
	}
	if !cfg.Renderer.EnableValidation {
		t.Error("validation not enabled")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[application\nname="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed TOML did not error")
	}
}

func TestWorkerCountFallsBackToCPUs(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit count", 4, 4},
		{"zero uses one per CPU", 0, runtime.NumCPU()},
		{"negative uses one per CPU", -1, runtime.NumCPU()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rc := RendererConfig{Workers: tc.workers}
			if got := rc.WorkerCount(); got != tc.want {
				t.Errorf("WorkerCount() = %d, want %d", got, tc.want)
			}
		})
	}
}
