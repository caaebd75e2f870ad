package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/keybench/internal/pipeline"
	"github.com/jackc/pgx/v5"
)

// Store manages the PostgreSQL connection holding benchmark results.
type Store struct {
	conn *pgx.Conn
}

// Run is one invocation of the benchmark.
type Run struct {
	ID         int64
	Name       string
	Source     string
	FrameCount int
	StartedAt  time.Time
	Results    int
}

// Result is one stored configuration pair report.
type Result struct {
	RunID                 int64
	Detector              string
	Descriptor            string
	Status                string
	Error                 string
	FramesDetected        int
	FramesDescribed       int
	AvgKeypointsDetected  float64
	AvgKeypointsDescribed float64
	AvgDetectorMs         float64
	AvgTotalMs            float64
	MatchInvocations      int
	AvgMatches            float64
	AvgMatchMs            float64
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS benchmark_runs (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			frame_count INT NOT NULL,
			started_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS benchmark_results (
			id BIGSERIAL PRIMARY KEY,
			run_id BIGINT NOT NULL REFERENCES benchmark_runs(id) ON DELETE CASCADE,
			detector TEXT NOT NULL,
			descriptor TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			frames_detected INT NOT NULL,
			frames_described INT NOT NULL,
			avg_keypoints_detected DOUBLE PRECISION NOT NULL,
			avg_keypoints_described DOUBLE PRECISION NOT NULL,
			avg_detector_ms DOUBLE PRECISION NOT NULL,
			avg_total_ms DOUBLE PRECISION NOT NULL,
			match_invocations INT NOT NULL,
			avg_matches DOUBLE PRECISION NOT NULL,
			avg_match_ms DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS benchmark_results_run_id_idx ON benchmark_results (run_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// CreateRun registers a new benchmark run and returns its ID.
func (s *Store) CreateRun(ctx context.Context, name, source string, frameCount int) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx, `
		INSERT INTO benchmark_runs (name, source, frame_count)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, source, frameCount).Scan(&id)
	return id, err
}

// InsertResult saves the finalized averages of one configuration pair.
func (s *Store) InsertResult(ctx context.Context, runID int64, r pipeline.Report) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO benchmark_results (
			run_id, detector, descriptor, status, error,
			frames_detected, frames_described,
			avg_keypoints_detected, avg_keypoints_described,
			avg_detector_ms, avg_total_ms,
			match_invocations, avg_matches, avg_match_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, runID, string(r.Pair.Detector), string(r.Pair.Descriptor), string(r.Status), r.Err,
		r.Stats.FramesDetected, r.Stats.FramesDescribed,
		r.AverageKeypointsDetected(), r.AverageKeypointsDescribed(),
		r.AverageDetectorTimeMs(), r.AverageTotalTimeMs(),
		r.Stats.MatchInvocations, r.AverageMatches(), r.AverageMatchTimeMs())
	return err
}

// LatestRunID returns the most recent run, or -1 if there is none.
func (s *Store) LatestRunID(ctx context.Context) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx, "SELECT id FROM benchmark_runs ORDER BY id DESC LIMIT 1").Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return -1, nil
	}
	return id, err
}

// ListRuns returns every run with its result count, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT r.id, r.name, r.source, r.frame_count, r.started_at, COUNT(b.id)
		FROM benchmark_runs r
		LEFT JOIN benchmark_results b ON b.run_id = r.id
		GROUP BY r.id
		ORDER BY r.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.FrameCount, &r.StartedAt, &r.Results); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListResults returns the results of one run in insertion order.
func (s *Store) ListResults(ctx context.Context, runID int64) ([]Result, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT run_id, detector, descriptor, status, error,
			frames_detected, frames_described,
			avg_keypoints_detected, avg_keypoints_described,
			avg_detector_ms, avg_total_ms,
			match_invocations, avg_matches, avg_match_ms
		FROM benchmark_results
		WHERE run_id = $1
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		err := rows.Scan(&r.RunID, &r.Detector, &r.Descriptor, &r.Status, &r.Error,
			&r.FramesDetected, &r.FramesDescribed,
			&r.AvgKeypointsDetected, &r.AvgKeypointsDescribed,
			&r.AvgDetectorMs, &r.AvgTotalMs,
			&r.MatchInvocations, &r.AvgMatches, &r.AvgMatchMs)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// RenameRun updates the name of a benchmark run.
func (s *Store) RenameRun(ctx context.Context, id int64, name string) error {
	tag, err := s.conn.Exec(ctx, "UPDATE benchmark_runs SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS benchmark_results CASCADE;
		DROP TABLE IF EXISTS benchmark_runs CASCADE;
	`)
	return err
}

// Sink writes reports of one run into the store.
type Sink struct {
	store *Store
	runID int64
}

// NewSink binds a sink to an existing run.
func (s *Store) NewSink(runID int64) *Sink {
	return &Sink{store: s, runID: runID}
}

func (k *Sink) Write(ctx context.Context, r pipeline.Report) error {
	return k.store.InsertResult(ctx, k.runID, r)
}

// Close is a no-op; the connection belongs to the Store.
func (k *Sink) Close() error { return nil }

func (k *Sink) RunID() int64 { return k.runID }
