package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaults(t *testing.T) {
	t.Setenv("TASKBOARD_API_URL", "")
	path := filepath.Join(t.TempDir(), "taskboard", "taskboard.yml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file was not written: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, DefaultAPIURL)
	}
	if cfg.HTTP.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v", cfg.HTTP.Timeout)
	}
	if cfg.Tasks.AllowTimeOverwrite {
		t.Error("time overwrite should be off by default")
	}
	if cfg.Log.File != filepath.Join(cfg.DataDir, "taskboard.log") {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskboard.yml")
	content := `api_url: https://tasks.example.com/
data_dir: ` + dir + `
http:
  timeout: 3s
tasks:
  allow_time_overwrite: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "https://tasks.example.com" {
		t.Errorf("APIURL = %q, trailing slash should be trimmed", cfg.APIURL)
	}
	if cfg.HTTP.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v", cfg.HTTP.Timeout)
	}
	if !cfg.Tasks.AllowTimeOverwrite {
		t.Error("allow_time_overwrite not read")
	}
	if cfg.DBPath() != filepath.Join(dir, "taskboard.db") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}

	t.Setenv("TASKBOARD_API_URL", "http://127.0.0.1:9999")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9999" {
		t.Errorf("env override ignored, APIURL = %q", cfg.APIURL)
	}
}

func TestLoadRejectsBadURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskboard.yml")
	if err := os.WriteFile(path, []byte("api_url: ftp://nope\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TASKBOARD_API_URL", "")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a non-http api_url")
	}
}
