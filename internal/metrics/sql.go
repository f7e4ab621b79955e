package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/ziadkadry99/concierge/internal/config"
	"github.com/ziadkadry99/concierge/internal/db"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS agent_metrics (
    id SERIAL PRIMARY KEY,
    timestamp TIMESTAMPTZ NOT NULL,
    llm VARCHAR(100) NOT NULL,
    metric VARCHAR(100) NOT NULL,
    value DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agent_metrics_timestamp ON agent_metrics(timestamp);
CREATE INDEX IF NOT EXISTS idx_agent_metrics_llm ON agent_metrics(llm);
CREATE INDEX IF NOT EXISTS idx_agent_metrics_metric ON agent_metrics(metric);
`

// SQLRecorder writes metrics to the agent_metrics table.
type SQLRecorder struct {
	db      *sql.DB
	dialect dialect
	ownsDB  bool
	logger  *slog.Logger
}

// NewSQLiteRecorder records into the shared concierge database. The schema
// is created by db.Open.
func NewSQLiteRecorder(database *db.DB, logger *slog.Logger) *SQLRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLRecorder{db: database.DB, dialect: dialectSQLite, logger: logger}
}

// NewPostgresRecorder connects to dsn and creates the metrics table if it
// does not exist.
func NewPostgresRecorder(ctx context.Context, dsn string, logger *slog.Logger) (*SQLRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pg, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := pg.PingContext(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pg.ExecContext(ctx, postgresSchema); err != nil {
		pg.Close()
		return nil, fmt.Errorf("creating metrics table: %w", err)
	}
	return &SQLRecorder{db: pg, dialect: dialectPostgres, ownsDB: true, logger: logger}, nil
}

// Open returns the recorder selected by cfg. It returns nil for the
// "none" driver.
func Open(ctx context.Context, cfg config.MetricsConfig, database *db.DB, logger *slog.Logger) (*SQLRecorder, error) {
	switch cfg.Driver {
	case config.MetricsNone:
		return nil, nil
	case config.MetricsPostgres:
		return NewPostgresRecorder(ctx, cfg.DSN, logger)
	case config.MetricsSQLite, "":
		return NewSQLiteRecorder(database, logger), nil
	default:
		return nil, fmt.Errorf("unsupported metrics driver: %s", cfg.Driver)
	}
}

// Record inserts one metric. Failures are logged, not returned.
func (r *SQLRecorder) Record(ctx context.Context, m Metric) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	var ts any = m.Timestamp.UnixMilli()
	query := `INSERT INTO agent_metrics (timestamp, llm, metric, value) VALUES (?, ?, ?, ?)`
	if r.dialect == dialectPostgres {
		ts = m.Timestamp
		query = `INSERT INTO agent_metrics (timestamp, llm, metric, value) VALUES ($1, $2, $3, $4)`
	}

	if _, err := r.db.ExecContext(ctx, query, ts, m.LLM, m.Name, m.Value); err != nil {
		r.logger.Error("recording metric failed", "metric", m.Name, "error", err)
		return
	}
	r.logger.Debug("metric recorded", "llm", m.LLM, "metric", m.Name, "value", m.Value)
}

// Summary returns per-model totals for every metric name.
func (r *SQLRecorder) Summary(ctx context.Context) ([]Total, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT llm, metric, COUNT(*), COALESCE(SUM(value), 0)
		FROM agent_metrics
		GROUP BY llm, metric
		ORDER BY llm, metric`)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var totals []Total
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.LLM, &t.Metric, &t.Count, &t.Sum); err != nil {
			return nil, fmt.Errorf("scanning metric total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Close releases the connection pool when the recorder opened its own.
func (r *SQLRecorder) Close() error {
	if r.ownsDB {
		return r.db.Close()
	}
	return nil
}
