package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"shopeasy/models"
)

var ErrUnsupportedDriver = errors.New("unsupported storage driver")

const resultColumns = 12

type dialect struct {
	driver      string
	schema      string
	placeholder func(n int) string
}

var postgresDialect = dialect{
	driver:      "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	schema: `
		CREATE TABLE IF NOT EXISTS search_runs (
			id          TEXT         PRIMARY KEY,
			query       TEXT         NOT NULL,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			total_found INTEGER      NOT NULL DEFAULT 0,
			diagnostics TEXT         NOT NULL DEFAULT '{}'
		);

		CREATE TABLE IF NOT EXISTS run_results (
			run_id        TEXT             NOT NULL REFERENCES search_runs(id) ON DELETE CASCADE,
			rank          INTEGER          NOT NULL,
			platform      VARCHAR(50)      NOT NULL,
			title         TEXT             NOT NULL,
			price         NUMERIC(12,2)    NOT NULL,
			url           TEXT             NOT NULL,
			rating        DOUBLE PRECISION,
			num_reviews   INTEGER,
			delivery_days DOUBLE PRECISION,
			return_policy DOUBLE PRECISION,
			final_score   DOUBLE PRECISION NOT NULL,
			labels        TEXT             NOT NULL DEFAULT '[]',
			PRIMARY KEY (run_id, rank)
		);

		CREATE INDEX IF NOT EXISTS idx_search_runs_created ON search_runs(created_at);
		CREATE INDEX IF NOT EXISTS idx_run_results_platform ON run_results(platform);
	`,
}

var sqliteDialect = dialect{
	driver:      "sqlite",
	placeholder: func(int) string { return "?" },
	schema: `
		CREATE TABLE IF NOT EXISTS search_runs (
			id          TEXT     PRIMARY KEY,
			query       TEXT     NOT NULL,
			created_at  DATETIME NOT NULL,
			total_found INTEGER  NOT NULL DEFAULT 0,
			diagnostics TEXT     NOT NULL DEFAULT '{}'
		);

		CREATE TABLE IF NOT EXISTS run_results (
			run_id        TEXT    NOT NULL REFERENCES search_runs(id) ON DELETE CASCADE,
			rank          INTEGER NOT NULL,
			platform      TEXT    NOT NULL,
			title         TEXT    NOT NULL,
			price         REAL    NOT NULL,
			url           TEXT    NOT NULL,
			rating        REAL,
			num_reviews   INTEGER,
			delivery_days REAL,
			return_policy REAL,
			final_score   REAL    NOT NULL,
			labels        TEXT    NOT NULL DEFAULT '[]',
			PRIMARY KEY (run_id, rank)
		);

		CREATE INDEX IF NOT EXISTS idx_search_runs_created ON search_runs(created_at);
		CREATE INDEX IF NOT EXISTS idx_run_results_platform ON run_results(platform);
	`,
}

// SQLStore persists search runs and their ranked results to PostgreSQL or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenPostgres connects to PostgreSQL, waiting for it to come up, and runs
// schema migrations.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect, 10)
}

// OpenSQLite opens (or creates) the database file at path and runs schema
// migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}
	db, err := sql.Open(sqliteDialect.driver, path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqliteDialect, 1)
}

// Open picks the backend by driver name: "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "postgres":
		return OpenPostgres(ctx, dsn)
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, pingAttempts int) (*SQLStore, error) {
	var err error
	for i := 0; i < pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("%s: ping: %w", d.driver, ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping failed after retries: %w", d.driver, err)
	}

	s := &SQLStore{db: db, dialect: d}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", d.driver, err)
	}
	return s, nil
}

// SaveRun stores one run and its ranked results in a single transaction.
func (s *SQLStore) SaveRun(ctx context.Context, run models.SearchRun) error {
	diag, err := json.Marshal(run.Diagnostics)
	if err != nil {
		return fmt.Errorf("%s: encode diagnostics: %w", s.dialect.driver, err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.driver, err)
	}
	defer func() { _ = tx.Rollback() }()

	p := s.dialect.placeholder
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO search_runs (id, query, created_at, total_found, diagnostics)
		VALUES (%s, %s, %s, %s, %s)
	`, p(1), p(2), p(3), p(4), p(5)),
		run.ID, run.Query, run.CreatedAt.UTC(), run.TotalFound, string(diag))
	if err != nil {
		return fmt.Errorf("%s: insert run: %w", s.dialect.driver, err)
	}

	const batchSize = 50
	for i := 0; i < len(run.Results); i += batchSize {
		end := i + batchSize
		if end > len(run.Results) {
			end = len(run.Results)
		}
		if err := s.insertBatch(ctx, tx, run.ID, i, run.Results[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.driver, err)
	}
	return nil
}

func (s *SQLStore) insertBatch(ctx context.Context, tx *sql.Tx, runID string, offset int, batch []models.ScoredListing) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*resultColumns)

	for idx, r := range batch {
		base := idx * resultColumns
		ph := make([]string, resultColumns)
		for c := range ph {
			ph[c] = s.dialect.placeholder(base + c + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		labels, err := json.Marshal(r.Labels)
		if err != nil {
			return fmt.Errorf("%s: encode labels: %w", s.dialect.driver, err)
		}
		valueArgs = append(valueArgs,
			runID, offset+idx+1, r.Source, r.Title, r.Price, r.URL,
			nullFloat(r.Rating), nullInt(r.Reviews), nullFloat(r.DeliveryDays), nullFloat(r.ReturnPolicy),
			r.Score, string(labels))
	}

	query := fmt.Sprintf(`
		INSERT INTO run_results (run_id, rank, platform, title, price, url,
			rating, num_reviews, delivery_days, return_policy, final_score, labels)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("%s: insert results: %w", s.dialect.driver, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first, with their results.
func (s *SQLStore) RecentRuns(ctx context.Context, limit int) ([]models.SearchRun, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, query, created_at, total_found, diagnostics
		FROM search_runs
		ORDER BY created_at DESC, id
		LIMIT %s
	`, s.dialect.placeholder(1)), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch runs: %w", s.dialect.driver, err)
	}

	var runs []models.SearchRun
	for rows.Next() {
		var run models.SearchRun
		var createdAt sql.NullTime
		var diag string
		if err := rows.Scan(&run.ID, &run.Query, &createdAt, &run.TotalFound, &diag); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: scan run: %w", s.dialect.driver, err)
		}
		if createdAt.Valid {
			run.CreatedAt = createdAt.Time
		}
		if err := json.Unmarshal([]byte(diag), &run.Diagnostics); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: decode diagnostics: %w", s.dialect.driver, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		results, err := s.fetchResults(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Results = results
	}
	return runs, nil
}

func (s *SQLStore) fetchResults(ctx context.Context, runID string) ([]models.ScoredListing, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT platform, title, price, url, rating, num_reviews, delivery_days, return_policy, final_score, labels
		FROM run_results
		WHERE run_id = %s
		ORDER BY rank
	`, s.dialect.placeholder(1)), runID)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch results: %w", s.dialect.driver, err)
	}
	defer rows.Close()

	var results []models.ScoredListing
	for rows.Next() {
		var r models.ScoredListing
		var rating, delivery, ret sql.NullFloat64
		var reviews sql.NullInt64
		var labels string
		if err := rows.Scan(&r.Source, &r.Title, &r.Price, &r.URL,
			&rating, &reviews, &delivery, &ret, &r.Score, &labels); err != nil {
			return nil, fmt.Errorf("%s: scan result: %w", s.dialect.driver, err)
		}
		r.Rating = fromNullFloat(rating)
		r.DeliveryDays = fromNullFloat(delivery)
		r.ReturnPolicy = fromNullFloat(ret)
		if reviews.Valid {
			r.Reviews = models.Int(int(reviews.Int64))
		}
		if err := json.Unmarshal([]byte(labels), &r.Labels); err != nil {
			return nil, fmt.Errorf("%s: decode labels: %w", s.dialect.driver, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullFloat(v models.OptFloat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.Value, Valid: v.Present()}
}

func nullInt(v models.OptInt) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v.Value), Valid: v.Valid}
}

func fromNullFloat(v sql.NullFloat64) models.OptFloat {
	if !v.Valid {
		return models.OptFloat{}
	}
	return models.Float(v.Float64)
}
