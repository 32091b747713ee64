package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "taskboard.log")

	log, closer, err := New("debug", path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.WithField("op", "test").Debug("hello")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(string(data), "op=test") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	log, closer, err := New("loud", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closer.Close()
	if log.Logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", log.Logger.GetLevel())
	}
}
