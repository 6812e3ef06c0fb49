package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cabwatch/internal/config"

	"github.com/rs/zerolog/log"
)

func TestRotatingWriterKeepsOneBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cabwatch.log")
	w, err := newRotatingWriter(path, 1)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	defer w.Close()

	chunk := make([]byte, 400*1024)
	for i := 0; i < 4; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write chunk %d: %v", i, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat log: %v", err)
	}
	if info.Size() > 1024*1024 {
		t.Fatalf("expected log <= 1MB, got %d", info.Size())
	}
	backup, err := os.Stat(path + ".1")
	if err != nil {
		t.Fatalf("stat backup: %v", err)
	}
	if backup.Size() == 0 {
		t.Fatal("expected non-empty backup")
	}
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	closer, err := Init(config.LogConfig{Service: "cabwatch-test", Level: "debug", File: path, MaxMB: 1})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	log.Info().Str("location", "sj").Msg("probe")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(raw)
	if !strings.Contains(line, `"message":"probe"`) || !strings.Contains(line, `"service":"cabwatch-test"`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}
