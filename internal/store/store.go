// Package store handles SQLite persistence of batch results.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikexyl/mesa/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for experiment results.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS experiments (
			name TEXT PRIMARY KEY,
			algorithm TEXT NOT NULL,
			grid TEXT NOT NULL,
			robot_count INTEGER NOT NULL,
			total_communications INTEGER NOT NULL,
			final_position_error REAL NOT NULL,
			final_rotation_error REAL NOT NULL,
			position_converged INTEGER NOT NULL,
			position_crossing_comm INTEGER NOT NULL,
			position_ratio REAL NOT NULL,
			position_iteration INTEGER,
			position_time REAL,
			rotation_converged INTEGER NOT NULL,
			rotation_crossing_comm INTEGER NOT NULL,
			rotation_ratio REAL NOT NULL,
			rotation_iteration INTEGER,
			rotation_time REAL,
			total_samples INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_experiments_algorithm ON experiments(algorithm);`,
		`CREATE INDEX IF NOT EXISTS idx_experiments_robot_count ON experiments(robot_count);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertResults inserts or replaces result rows keyed by experiment name.
func (s *Store) UpsertResults(ctx context.Context, results []model.ExperimentResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO experiments (name, algorithm, grid, robot_count, total_communications,
			final_position_error, final_rotation_error,
			position_converged, position_crossing_comm, position_ratio, position_iteration, position_time,
			rotation_converged, rotation_crossing_comm, rotation_ratio, rotation_iteration, rotation_time,
			total_samples, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			algorithm=excluded.algorithm, grid=excluded.grid, robot_count=excluded.robot_count,
			total_communications=excluded.total_communications,
			final_position_error=excluded.final_position_error,
			final_rotation_error=excluded.final_rotation_error,
			position_converged=excluded.position_converged,
			position_crossing_comm=excluded.position_crossing_comm,
			position_ratio=excluded.position_ratio,
			position_iteration=excluded.position_iteration,
			position_time=excluded.position_time,
			rotation_converged=excluded.rotation_converged,
			rotation_crossing_comm=excluded.rotation_crossing_comm,
			rotation_ratio=excluded.rotation_ratio,
			rotation_iteration=excluded.rotation_iteration,
			rotation_time=excluded.rotation_time,
			total_samples=excluded.total_samples,
			updated_at=excluded.updated_at`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, res := range results {
		if _, err = stmt.ExecContext(ctx,
			res.Experiment,
			res.Algorithm.String(),
			res.Grid,
			res.RobotCount,
			int64(res.TotalCommunications),
			res.FinalPosition,
			res.FinalRotation,
			res.Position.Converged,
			int64(res.Position.CrossingCounter),
			res.Position.RatioOfFinal,
			nullableUint(res.Position.Iteration),
			nullableFloat(res.Position.ElapsedSeconds),
			res.Rotation.Converged,
			int64(res.Rotation.CrossingCounter),
			res.Rotation.RatioOfFinal,
			nullableUint(res.Rotation.Iteration),
			nullableFloat(res.Rotation.ElapsedSeconds),
			res.TotalSamples,
			now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Filter restricts ListResults output.
type Filter struct {
	Algorithm string
}

// ListResults returns stored results ordered by robot count, algorithm,
// and experiment name.
func (s *Store) ListResults(ctx context.Context, filter Filter) ([]model.ExperimentResult, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Algorithm != "" {
		clauses = append(clauses, "algorithm = ?")
		args = append(args, filter.Algorithm)
	}
	query := fmt.Sprintf(`SELECT name, algorithm, grid, robot_count, total_communications,
			final_position_error, final_rotation_error,
			position_converged, position_crossing_comm, position_ratio, position_iteration, position_time,
			rotation_converged, rotation_crossing_comm, rotation_ratio, rotation_iteration, rotation_time,
			total_samples
		FROM experiments
		WHERE %s
		ORDER BY robot_count ASC, algorithm ASC, name ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var results []model.ExperimentResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Algorithms returns the distinct algorithm labels in the store.
func (s *Store) Algorithms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT algorithm FROM experiments ORDER BY algorithm`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var algorithms []string
	for rows.Next() {
		var alg string
		if err := rows.Scan(&alg); err != nil {
			return nil, err
		}
		algorithms = append(algorithms, alg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return algorithms, nil
}

func scanResult(rows *sql.Rows) (model.ExperimentResult, error) {
	var (
		res          model.ExperimentResult
		algorithm    string
		totalComm    int64
		posCrossing  int64
		rotCrossing  int64
		posIteration sql.NullInt64
		posTime      sql.NullFloat64
		rotIteration sql.NullInt64
		rotTime      sql.NullFloat64
	)
	if err := rows.Scan(
		&res.Experiment,
		&algorithm,
		&res.Grid,
		&res.RobotCount,
		&totalComm,
		&res.FinalPosition,
		&res.FinalRotation,
		&res.Position.Converged,
		&posCrossing,
		&res.Position.RatioOfFinal,
		&posIteration,
		&posTime,
		&res.Rotation.Converged,
		&rotCrossing,
		&res.Rotation.RatioOfFinal,
		&rotIteration,
		&rotTime,
		&res.TotalSamples,
	); err != nil {
		return model.ExperimentResult{}, err
	}
	res.Algorithm = model.ParseAlgorithmID(algorithm)
	res.TotalCommunications = uint64(totalComm)
	res.Position.CrossingCounter = uint64(posCrossing)
	res.Rotation.CrossingCounter = uint64(rotCrossing)
	res.Position.Iteration = optionalUint(posIteration)
	res.Position.ElapsedSeconds = optionalFloat(posTime)
	res.Rotation.Iteration = optionalUint(rotIteration)
	res.Rotation.ElapsedSeconds = optionalFloat(rotTime)
	return res, nil
}

func nullableUint(v *uint64) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optionalUint(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}

func optionalFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
