package store

import (
	"context"
	"errors"
	"testing"

	"github.com/sharecycle/sharecycle/internal/db"
)

func TestIsUniqueViolation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	insert := func(username, role string) error {
		_, err := database.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, role) VALUES (?, 'x', ?)`, username, role)
		return err
	}
	if err := insert("eve", "user"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := insert("eve", "user"); !isUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
	if err := insert("frank", "superuser"); err == nil || isUniqueViolation(err) {
		t.Errorf("CHECK failure must not count as unique violation, got %v", err)
	}
	if isUniqueViolation(nil) || isUniqueViolation(errors.New("UNIQUE constraint failed: users.username")) {
		t.Error("only driver errors carry a constraint code")
	}
}
