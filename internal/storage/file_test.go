package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestFileSource_FetchMissing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.csv"))

	_, err := src.Fetch(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func TestFileSource_ReplaceThenFetch(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "transactions.csv"))
	ctx := context.Background()

	content := []byte("Date,Description,Amount,Category\n")
	if err := src.Replace(ctx, content); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Fetch() = %q, want %q", got, content)
	}
}

func TestFileSource_ReplaceOverwritesWholesale(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "transactions.csv"))
	ctx := context.Background()

	if err := src.Replace(ctx, []byte("first")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := src.Replace(ctx, []byte("second")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Fetch() = %q, want %q", got, "second")
	}
}

func TestNewGCSSource(t *testing.T) {
	tests := []struct {
		uri     string
		wantErr bool
	}{
		{"gs://bucket/path/transactions.csv", false},
		{"gs://bucket/", true},
		{"gs://", true},
		{"/local/path.csv", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			_, err := NewGCSSource(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGCSSource(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
		})
	}
}
