package orchestrator

// #region imports
import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"
)

// #endregion

// #region schema

const requestOutcomesSchema = `
CREATE TABLE IF NOT EXISTS request_outcomes (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id      TEXT NOT NULL,
    method          TEXT NOT NULL,
    success         INTEGER NOT NULL DEFAULT 0,
    error_kind      TEXT NOT NULL DEFAULT '',
    agent_calls     INTEGER NOT NULL DEFAULT 0,
    fallback_calls  INTEGER NOT NULL DEFAULT 0,
    transitions     INTEGER NOT NULL DEFAULT 0,
    query_count     INTEGER NOT NULL DEFAULT 0,
    latency_ms      INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL
);
`

const requestOutcomesIndex = `
CREATE INDEX IF NOT EXISTS idx_request_outcomes_method
ON request_outcomes(method);
`

// #endregion

// #region types

// OutcomeRecord is a single row for request_outcomes.
type OutcomeRecord struct {
	RequestID     string
	Method        Method
	Success       bool
	Kind          ErrorKind
	AgentCalls    int
	FallbackCalls int
	Transitions   int
	QueryCount    int
	Latency       time.Duration
	CreatedAt     time.Time
}

// MethodStat summarizes outcomes for one method. SuccessRate is weighted
// by recency with a one-week half-life.
type MethodStat struct {
	Method      Method
	Count       int
	SuccessRate float64
}

const halfLifeHours = 7.0 * 24.0

// #endregion

// #region memory-struct

// OutcomeMemory persists terminal request outcomes in SQLite.
type OutcomeMemory struct {
	db *sql.DB
}

// NewOutcomeMemory initializes the request_outcomes table.
func NewOutcomeMemory(db *sql.DB) (*OutcomeMemory, error) {
	if _, err := db.Exec(requestOutcomesSchema); err != nil {
		return nil, fmt.Errorf("create request_outcomes: %w", err)
	}
	if _, err := db.Exec(requestOutcomesIndex); err != nil {
		return nil, fmt.Errorf("index request_outcomes: %w", err)
	}
	return &OutcomeMemory{db: db}, nil
}

// #endregion

// #region record-outcome

// Record persists a single outcome row.
func (m *OutcomeMemory) Record(ctx context.Context, rec OutcomeRecord) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO request_outcomes
		(request_id, method, success, error_kind, agent_calls, fallback_calls,
		 transitions, query_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		string(rec.Method),
		success,
		string(rec.Kind),
		rec.AgentCalls,
		rec.FallbackCalls,
		rec.Transitions,
		rec.QueryCount,
		rec.Latency.Milliseconds(),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// #endregion

// #region method-stats

// MethodStats aggregates outcomes per method, most frequent first.
func (m *OutcomeMemory) MethodStats(ctx context.Context, now time.Time) ([]MethodStat, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT method, success, created_at FROM request_outcomes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type accum struct {
		weightedSum float64
		totalWeight float64
		count       int
	}
	byMethod := make(map[Method]*accum)

	for rows.Next() {
		var method, createdAtStr string
		var success int
		if err := rows.Scan(&method, &success, &createdAtStr); err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			continue
		}
		weight := math.Pow(0.5, now.Sub(createdAt).Hours()/halfLifeHours)

		a, ok := byMethod[Method(method)]
		if !ok {
			a = &accum{}
			byMethod[Method(method)] = a
		}
		a.weightedSum += float64(success) * weight
		a.totalWeight += weight
		a.count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats := make([]MethodStat, 0, len(byMethod))
	for method, a := range byMethod {
		rate := 0.0
		if a.totalWeight > 0 {
			rate = a.weightedSum / a.totalWeight
		}
		stats = append(stats, MethodStat{Method: method, Count: a.count, SuccessRate: rate})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Method < stats[j].Method
	})
	return stats, nil
}

// #endregion
