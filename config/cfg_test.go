package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"critcss/config"
)

func TestLoadConfiguration_Defaults(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if len(cfg.Extract.Viewports) != 2 {
		t.Errorf("expected 2 default viewports, got %d", len(cfg.Extract.Viewports))
	}
	if cfg.Extract.SettleDelayMS != 2000 {
		t.Errorf("expected default settle delay 2000ms, got %d", cfg.Extract.SettleDelayMS)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("expected normal console logging, got %q", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestLoadConfiguration_Overlay(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "config.yaml")
	data := `
extract:
  viewports:
    - width: 800
      height: 600
  force_include:
    - ".keep"
output:
  compress: true
`
	if err := os.WriteFile(fname, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := config.LoadConfiguration(fname)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	if len(cfg.Extract.Viewports) != 1 || cfg.Extract.Viewports[0].Width != 800 {
		t.Errorf("expected overridden viewports, got %+v", cfg.Extract.Viewports)
	}
	if len(cfg.Extract.ForceInclude) != 1 || cfg.Extract.ForceInclude[0] != ".keep" {
		t.Errorf("expected force_include overlay, got %+v", cfg.Extract.ForceInclude)
	}
	if !cfg.Output.Compress {
		t.Error("expected compress override")
	}
	// Untouched defaults survive the overlay.
	if cfg.Extract.SettleDelayMS != 2000 {
		t.Errorf("expected default settle delay kept, got %d", cfg.Extract.SettleDelayMS)
	}
}

func TestLoadConfiguration_RejectsUnknownKeys(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(fname, []byte("no_such_key: true\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := config.LoadConfiguration(fname); err == nil {
		t.Error("expected error for unknown configuration key")
	}
}

func TestLoadConfiguration_RejectsBadViewport(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "config.yaml")
	data := `
extract:
  viewports:
    - width: 0
      height: 600
`
	if err := os.WriteFile(fname, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := config.LoadConfiguration(fname); err == nil {
		t.Error("expected error for non-positive viewport")
	}
}

func TestDump(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	data, err := config.Dump(cfg)
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty configuration dump")
	}
}
