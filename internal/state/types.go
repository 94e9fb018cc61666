package state

import "time"

// #region embedding-record
// EmbeddingRecord is one cached text embedding. Fingerprint identifies the
// catalog and vocabulary the vector was computed for; a different
// fingerprint or model makes the row stale.
type EmbeddingRecord struct {
	Model       string
	Fingerprint string
	Text        string
	Vector      []float32
	CreatedAt   time.Time
}
// #endregion embedding-record
