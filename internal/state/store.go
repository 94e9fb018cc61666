package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS embedding_cache (
	model        TEXT NOT NULL,
	text_hash    TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	dims         INTEGER NOT NULL,
	vector       BLOB NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (model, text_hash)
);
`
// #endregion schema

// #region store-struct
// Store is the controller's own SQLite file: embedding cache here, audit
// and outcome tables added by the packages that own them.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region get-embedding
// GetEmbedding returns the cached vector for text, or ok=false when absent
// or computed under a different fingerprint.
func (s *Store) GetEmbedding(ctx context.Context, model, fingerprint, text string) ([]float32, bool, error) {
	var (
		storedFP string
		dims     int
		blob     []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, dims, vector FROM embedding_cache WHERE model = ? AND text_hash = ?`,
		model, hashText(text),
	).Scan(&storedFP, &dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get embedding: %w", err)
	}
	if storedFP != fingerprint {
		return nil, false, nil
	}
	vec, err := decodeVector(blob, dims)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}
// #endregion get-embedding

// #region put-embedding
// PutEmbedding upserts a cached vector.
func (s *Store) PutEmbedding(ctx context.Context, rec EmbeddingRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO embedding_cache (model, text_hash, fingerprint, dims, vector, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(model, text_hash) DO UPDATE SET
		   fingerprint = excluded.fingerprint,
		   dims = excluded.dims,
		   vector = excluded.vector,
		   created_at = excluded.created_at`,
		rec.Model, hashText(rec.Text), rec.Fingerprint, len(rec.Vector),
		encodeVector(rec.Vector), rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put embedding: %w", err)
	}
	return nil
}
// #endregion put-embedding

// #region prune
// PruneEmbeddings deletes every row not computed by model under fingerprint.
func (s *Store) PruneEmbeddings(ctx context.Context, model, fingerprint string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM embedding_cache WHERE model != ? OR fingerprint != ?`, model, fingerprint)
	if err != nil {
		return 0, fmt.Errorf("prune embeddings: %w", err)
	}
	return res.RowsAffected()
}

// CountEmbeddings returns the number of cached rows.
func (s *Store) CountEmbeddings(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}
// #endregion prune

// #region vector-encoding
var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return encoder.EncodeAll(buf, nil)
}

func decodeVector(b []byte, dims int) ([]float32, error) {
	raw, err := decoder.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress vector: %w", err)
	}
	if len(raw) != dims*4 {
		return nil, fmt.Errorf("vector length %d, want %d", len(raw), dims*4)
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v, nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
// #endregion vector-encoding
