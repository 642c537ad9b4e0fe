package user

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/pingman/internal/auth"
	"github.com/hitoshi/pingman/internal/tablestore"
)

func newTestProvisioner() (*Provisioner, *tablestore.Memory) {
	store := tablestore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProvisioner(store, logger), store
}

func TestAdd_CreatesTableAndAppendsRow(t *testing.T) {
	p, store := newTestProvisioner()

	if err := p.Add(context.Background(), "alice", "s3cret", "Alice Example"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := store.ReadAll(context.Background(), auth.UsersTable)
	if err != nil {
		t.Fatalf("failed to read users: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row[0] != "alice" || row[2] != "Alice Example" {
		t.Errorf("unexpected row: %v", row)
	}

	// パスワードはbcryptハッシュで保存される
	if row[1] == "s3cret" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row[1]), []byte("s3cret")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
}

func TestAdd_RejectsEmptyFields(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "空ユーザー名", username: "", password: "s3cret"},
		{name: "空白のみのユーザー名", username: "   ", password: "s3cret"},
		{name: "空パスワード", username: "alice", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store := newTestProvisioner()

			if err := p.Add(context.Background(), tt.username, tt.password, ""); err == nil {
				t.Error("expected error, got nil")
			}
			if rows, _ := store.ReadAll(context.Background(), auth.UsersTable); len(rows) != 0 {
				t.Errorf("no row should be appended, got %d", len(rows))
			}
		})
	}
}

func TestAdd_MultipleUsers(t *testing.T) {
	p, store := newTestProvisioner()

	for _, u := range []string{"alice", "bob"} {
		if err := p.Add(context.Background(), u, "pw-"+u, ""); err != nil {
			t.Fatalf("failed to add %s: %v", u, err)
		}
	}

	rows, err := store.ReadAll(context.Background(), auth.UsersTable)
	if err != nil {
		t.Fatalf("failed to read users: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// 追記順が保存される
	if rows[0][0] != "alice" || rows[1][0] != "bob" {
		t.Errorf("unexpected order: %v", rows)
	}
}
