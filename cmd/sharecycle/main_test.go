package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sharecycle/sharecycle/internal/db"
	"github.com/sharecycle/sharecycle/internal/store"
)

func TestLevelRouterSplitsStreams(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(newLevelRouter(&stdout, &stderr)).With("component", "test")

	logger.Debug("hidden")
	logger.Info("started")
	logger.Warn("slow")
	logger.Error("failed")

	if strings.Contains(stdout.String(), "hidden") {
		t.Error("debug records must be dropped")
	}
	if !strings.Contains(stdout.String(), "started") || !strings.Contains(stdout.String(), "slow") {
		t.Errorf("expected info and warn on stdout, got %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "failed") || !strings.Contains(stderr.String(), "failed") {
		t.Errorf("expected error only on stderr, got stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
	if !strings.Contains(stderr.String(), "component=test") {
		t.Error("attributes must be kept on both streams")
	}
}

func TestInitDatabaseCreatesAdmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.sqlite3")
	password, err := initDatabase(path, "root")
	if err != nil {
		t.Fatalf("initDatabase: %v", err)
	}
	if len(password) != 16 {
		t.Errorf("expected 16 character password, got %d", len(password))
	}

	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	u, err := store.GetUserByUsername(t.Context(), database, "root")
	if err != nil || u == nil {
		t.Fatalf("expected admin user, got %v, %v", u, err)
	}
	if u.Role != "admin" {
		t.Errorf("expected admin role, got %s", u.Role)
	}
}
