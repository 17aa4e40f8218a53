package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"3tcapital/ms_extraccion_core/internal/core/blob"
)

func TestStore_Get(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "results", "u1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "results", "u1", "a.json"), []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(root), "outside.json"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(filepath.Join(filepath.Dir(root), "outside.json")) })

	store := NewStore(root)

	tests := []struct {
		name     string
		key      string
		expected string
		notFound bool
		wantErr  bool
	}{
		{name: "existing object", key: "results/u1/a.json", expected: `{"ok":true}`},
		{name: "leading slash", key: "/results/u1/a.json", expected: `{"ok":true}`},
		{name: "missing object", key: "results/u1/b.json", notFound: true, wantErr: true},
		{name: "escape attempt stays inside root", key: "../outside.json", notFound: true, wantErr: true},
		{name: "empty key", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := store.Get(context.Background(), tt.key)

			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if tt.notFound && !errors.Is(err, blob.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if !tt.wantErr && string(data) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, data)
			}
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewStore(t.TempDir()).Get(ctx, "a.json"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
