package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunClosesLogOnError(t *testing.T) {
	dir := t.TempDir()

	// A regular file where the archive directory should be
	archivePath := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(archivePath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(dir, "logs", "flowchat.log")

	configPath := filepath.Join(dir, "config.yaml")
	cfg := "archive:\n" +
		"  enabled: true\n" +
		"  path: " + archivePath + "\n" +
		"logging:\n" +
		"  level: info\n" +
		"  path: " + logPath + "\n" +
		"  max_size_mb: 1\n" +
		"  max_backups: 1\n"
	if err := os.WriteFile(configPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	err := run([]string{"-config", configPath, "-history"})
	if err == nil {
		t.Fatal("Expected error when the archive path is a file")
	}

	data, readErr := os.ReadFile(logPath)
	if readErr != nil {
		t.Fatalf("Failed to read log: %v", readErr)
	}
	log := string(data)
	for _, want := range []string{"History browser failed", "Flow Chat Log Ended"} {
		if !strings.Contains(log, want) {
			t.Errorf("Log missing %q:\n%s", want, log)
		}
	}
}

func TestRunRejectsBadBackendFlag(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	err := run([]string{"-config", configPath, "-backend", "ftp://example.com"})
	if err == nil || !strings.Contains(err.Error(), "-backend") {
		t.Errorf("run() error = %v, want invalid -backend error", err)
	}
}
