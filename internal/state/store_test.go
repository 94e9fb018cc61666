package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetEmbedding(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	vec := []float32{0.25, -1.5, 3, 0}

	err := s.PutEmbedding(ctx, EmbeddingRecord{Model: "hash", Fingerprint: "fp1", Text: "respiratory", Vector: vec})
	if err != nil {
		t.Fatalf("PutEmbedding: %v", err)
	}

	got, ok, err := s.GetEmbedding(ctx, "hash", "fp1", "respiratory")
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != len(vec) {
		t.Fatalf("expected %d dims, got %d", len(vec), len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Fatalf("index %d: expected %f, got %f", i, vec[i], got[i])
		}
	}
}

func TestGetEmbeddingMiss(t *testing.T) {
	s := tempDB(t)
	_, ok, err := s.GetEmbedding(context.Background(), "hash", "fp1", "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestGetEmbeddingStaleFingerprint(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	if err := s.PutEmbedding(ctx, EmbeddingRecord{Model: "hash", Fingerprint: "old", Text: "asthma", Vector: []float32{1}}); err != nil {
		t.Fatal(err)
	}
	_, ok, err := s.GetEmbedding(ctx, "hash", "new", "asthma")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected stale fingerprint to miss")
	}
}

func TestPutEmbeddingUpsert(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	_ = s.PutEmbedding(ctx, EmbeddingRecord{Model: "m", Fingerprint: "a", Text: "t", Vector: []float32{1, 2}})
	if err := s.PutEmbedding(ctx, EmbeddingRecord{Model: "m", Fingerprint: "b", Text: "t", Vector: []float32{3}}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.GetEmbedding(ctx, "m", "b", "t")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected [3], got %v", got)
	}
	n, _ := s.CountEmbeddings(ctx)
	if n != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", n)
	}
}

func TestPruneEmbeddings(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	recs := []EmbeddingRecord{
		{Model: "m1", Fingerprint: "fp", Text: "a", Vector: []float32{1}},
		{Model: "m1", Fingerprint: "old", Text: "b", Vector: []float32{1}},
		{Model: "m2", Fingerprint: "fp", Text: "c", Vector: []float32{1}},
	}
	for _, r := range recs {
		if err := s.PutEmbedding(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	deleted, err := s.PruneEmbeddings(ctx, "m1", "fp")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 pruned rows, got %d", deleted)
	}
	n, _ := s.CountEmbeddings(ctx)
	if n != 1 {
		t.Fatalf("expected 1 remaining row, got %d", n)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := make([]float32, 256)
	for i := range vec {
		vec[i] = float32(i) * 0.01
	}
	got, err := decodeVector(encodeVector(vec), len(vec))
	if err != nil {
		t.Fatal(err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Fatalf("index %d: expected %f, got %f", i, vec[i], got[i])
		}
	}
	if _, err := decodeVector(encodeVector(vec), 10); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if _, err := decodeVector([]byte("not zstd"), 1); err == nil {
		t.Fatal("expected decompress error")
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore("/nonexistent/dir/test.db")
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestNewStore_CorruptDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.db")
	if err := os.WriteFile(path, []byte("this is not a sqlite database at all, just garbage bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path); err == nil {
		t.Fatal("expected error for corrupt db")
	}
}

func TestDBAccessor(t *testing.T) {
	s := tempDB(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil DB")
	}
}

func TestClosedStore(t *testing.T) {
	s := tempDB(t)
	s.Close()
	ctx := context.Background()
	if _, _, err := s.GetEmbedding(ctx, "m", "f", "t"); err == nil {
		t.Fatal("expected error on closed db")
	}
	if err := s.PutEmbedding(ctx, EmbeddingRecord{Model: "m", Text: "t", Vector: []float32{1}}); err == nil {
		t.Fatal("expected error on closed db")
	}
	if _, err := s.PruneEmbeddings(ctx, "m", "f"); err == nil {
		t.Fatal("expected error on closed db")
	}
}
