package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/ports"
)

const evaluationsTable = "article_evaluations"

var resultColumns = []string{
	"evaluation_1", "evaluation_2", "evaluation_3", "evaluation_4",
	"evaluation_5", "evaluation_6", "evaluation_7", "final_evaluation",
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS article_evaluations (
    run_id           TEXT NOT NULL,
    row_index        INTEGER NOT NULL,
    evaluation_1     TEXT NOT NULL,
    evaluation_2     TEXT NOT NULL,
    evaluation_3     TEXT NOT NULL,
    evaluation_4     TEXT NOT NULL,
    evaluation_5     TEXT NOT NULL,
    evaluation_6     TEXT NOT NULL,
    evaluation_7     TEXT NOT NULL,
    final_evaluation TEXT NOT NULL,
    updated_at       TIMESTAMP NOT NULL,
    PRIMARY KEY (run_id, row_index)
)`

// Open connects to postgres or sqlite3 and pings the database.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if _, err := placeholderFor(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func placeholderFor(driver string) (sq.PlaceholderFormat, error) {
	switch driver {
	case "postgres":
		return sq.Dollar, nil
	case "sqlite3":
		return sq.Question, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// SQLSink persists each record's slots keyed by run and row index.
type SQLSink struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	runID   string
	now     func() time.Time
}

var _ ports.ResultSink = (*SQLSink)(nil)

// NewSQLSink binds a sink to one run.
func NewSQLSink(db *sql.DB, driver, runID string) (*SQLSink, error) {
	format, err := placeholderFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLSink{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
		runID:   runID,
		now:     time.Now,
	}, nil
}

// Migrate creates the results table when it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create %s: %w", evaluationsTable, err)
	}
	return nil
}

// WriteRecord upserts all slots of one row in a single statement.
func (s *SQLSink) WriteRecord(ctx context.Context, index int, results domain.Results) error {
	if s.db == nil {
		return nil
	}

	columns := append([]string{"run_id", "row_index"}, resultColumns...)
	columns = append(columns, "updated_at")

	values := make([]interface{}, 0, len(columns))
	values = append(values, s.runID, index)
	for _, slot := range results {
		values = append(values, slot)
	}
	values = append(values, s.now().UTC())

	query := s.builder.Insert(evaluationsTable).
		Columns(columns...).
		Values(values...).
		Suffix(upsertSuffix())

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("upsert evaluation %d: %w", index, err)
	}
	return nil
}

// SnapshotReady is a no-op: every WriteRecord is already committed.
func (s *SQLSink) SnapshotReady(context.Context) error {
	return nil
}

// LoadRun returns the stored slots of a run keyed by row index.
func (s *SQLSink) LoadRun(ctx context.Context) (map[int]domain.Results, error) {
	query := s.builder.Select(append([]string{"row_index"}, resultColumns...)...).
		From(evaluationsTable).
		Where(sq.Eq{"run_id": s.runID}).
		OrderBy("row_index")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]domain.Results)
	for rows.Next() {
		var (
			index   int
			results domain.Results
		)
		dest := []interface{}{&index}
		for i := range results {
			dest = append(dest, &results[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		out[index] = results
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func upsertSuffix() string {
	suffix := "ON CONFLICT (run_id, row_index) DO UPDATE SET "
	for _, col := range resultColumns {
		suffix += col + " = EXCLUDED." + col + ", "
	}
	return suffix + "updated_at = EXCLUDED.updated_at"
}
