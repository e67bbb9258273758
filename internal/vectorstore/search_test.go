package vectorstore

import (
	"context"
	"os"
	"testing"
	"time"
)

func setupStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dbURL, 5)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	return NewStore(pool, 5*time.Second), func() { pool.Close() }
}

func TestStore_SemanticSearch(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	queryVec := make([]float32, 768)
	queryVec[0] = 1.0

	hits, err := store.SemanticSearch(context.Background(), queryVec, 5)
	if err != nil {
		t.Fatalf("SemanticSearch() error: %v", err)
	}
	for _, h := range hits {
		if h.ExactMatch {
			t.Error("SemanticSearch results should not be marked as exact matches")
		}
	}
}

func TestStore_EntityFirstSearch_MarksExactMatch(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	queryVec := make([]float32, 768)
	queryVec[0] = 1.0

	hits, err := store.EntityFirstSearch(context.Background(), queryVec, 5, "director")
	if err != nil {
		t.Fatalf("EntityFirstSearch() error: %v", err)
	}
	for _, h := range hits {
		if !h.ExactMatch {
			t.Error("EntityFirstSearch results should be marked as exact matches")
		}
	}
}

func TestPlaceholderFor(t *testing.T) {
	if got := placeholderFor(2); got != "$2" {
		t.Errorf("placeholderFor(2) = %q, want $2", got)
	}
}

func TestDecodeEntityList(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want []string
	}{
		{"nil column", nil, nil},
		{"empty column", []byte{}, nil},
		{"valid array", []byte(`["Prof. Ravi", "Dr. Kamath"]`), []string{"Prof. Ravi", "Dr. Kamath"}},
		{"empty array", []byte(`[]`), []string{}},
		{"malformed json", []byte(`not json`), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeEntityList(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("decodeEntityList(%s) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("decodeEntityList(%s)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}
