package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer

	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	logger.Info("job finished", "articles", 3)

	if !strings.Contains(stderr.String(), "job finished") {
		t.Errorf("stderr output = %q", stderr.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if entry["msg"] != "job finished" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["articles"] != float64(3) {
		t.Errorf("articles = %v", entry["articles"])
	}
}

func TestSetupLoggerWithWritersHonorsLevel(t *testing.T) {
	var stderr, file bytes.Buffer

	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)
	logger.Debug("noisy detail")

	if stderr.Len() != 0 || file.Len() != 0 {
		t.Errorf("debug output below level: stderr=%q file=%q", stderr.String(), file.String())
	}
}
