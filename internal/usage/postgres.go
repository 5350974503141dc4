package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresTracker persists usage records for offline reporting.
type PostgresTracker struct {
	db *sql.DB
}

func NewPostgresTracker(databaseURL string) (*PostgresTracker, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresTracker{db: db}, nil
}

func NewPostgresTrackerWithDB(db *sql.DB) *PostgresTracker {
	return &PostgresTracker{db: db}
}

func (t *PostgresTracker) Record(ctx context.Context, record Record) error {
	query := `
		INSERT INTO ai_usage_records (request_id, operation, provider, model, prompt_tokens, completion_tokens, cost_usd, latency_ms, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := t.db.ExecContext(ctx, query,
		record.RequestID,
		record.Operation,
		record.Provider,
		record.Model,
		record.PromptTokens,
		record.CompletionTokens,
		record.CostUSD,
		record.LatencyMs,
		record.Status,
		record.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}

	return nil
}

// OperationTotals returns cost aggregated by operation since the given time.
func (t *PostgresTracker) OperationTotals(ctx context.Context, since time.Time) (map[string]float64, error) {
	query := `
		SELECT operation, COALESCE(SUM(cost_usd), 0)
		FROM ai_usage_records
		WHERE created_at >= $1
		GROUP BY operation
	`

	rows, err := t.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query operation totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var operation string
		var total float64
		if err := rows.Scan(&operation, &total); err != nil {
			return nil, fmt.Errorf("scan operation total: %w", err)
		}
		totals[operation] = total
	}

	return totals, rows.Err()
}

// DB exposes the underlying handle for health checks.
func (t *PostgresTracker) DB() *sql.DB {
	return t.db
}

func (t *PostgresTracker) Close() error {
	return t.db.Close()
}
