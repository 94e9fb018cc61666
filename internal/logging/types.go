package logging

import "time"

// #region audit-entry
// AuditEntry is a single row in the request_audit table.
type AuditEntry struct {
	RequestID       string
	OriginalText    string
	EnrichedText    string
	Method          string // "agent" | "fallback_<intent>" | "error" | "failed"
	Success         bool
	Response        string
	Error           string
	ExecutedQueries []string
	TraceJSON       string
	CreatedAt       time.Time
}
// #endregion audit-entry
