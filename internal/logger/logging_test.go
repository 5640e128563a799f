package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSetupLevels(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)

	testCases := []struct {
		name     string
		opts     Options
		expected log.Level
	}{
		{"default", Options{}, log.WarnLevel},
		{"configured", Options{Level: "error"}, log.ErrorLevel},
		{"unknown keeps default", Options{Level: "loud"}, log.WarnLevel},
		{"debug wins", Options{Debug: true, Level: "error"}, log.DebugLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			closer, err := Setup(tc.opts)
			if err != nil {
				t.Fatalf("Setup failed: %v", err)
			}
			defer closer.Close()

			if got := log.GetLevel(); got != tc.expected {
				t.Errorf("expected level %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestSetupFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)

	path := filepath.Join(t.TempDir(), "marketserve.log")
	closer, err := Setup(Options{File: path, Level: "warn"})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	log.Warn("catalog is empty")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "catalog is empty") {
		t.Errorf("log file missing line, got %q", data)
	}
}

func TestSetupBadFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)

	closer, err := Setup(Options{File: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	if err == nil {
		t.Error("expected error for unwritable log file")
	}
	if closer == nil {
		t.Fatal("closer must never be nil")
	}
	closer.Close()
}
