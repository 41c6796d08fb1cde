package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/orbview/internal/config"
	"github.com/sirupsen/logrus"
)

func TestNewFallbackWriter(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(config.LogConfig{Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	defer closer.Close()

	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %v", log.GetLevel())
	}
	log.WithField("kind", "vector").Debug("dispatched")
	if !strings.Contains(buf.String(), "kind=vector") {
		t.Errorf("expected structured field in output, got %q", buf.String())
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orbview.log")
	log, closer, err := New(config.LogConfig{Level: "warn", File: path}, nil)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	log.Info("hidden")
	log.Warn("visible")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(string(data), "visible") {
		t.Error("warn line missing")
	}
}

func TestNewBadLevel(t *testing.T) {
	if _, _, err := New(config.LogConfig{Level: "loud"}, nil); err == nil {
		t.Error("expected error for unknown level")
	}
}
