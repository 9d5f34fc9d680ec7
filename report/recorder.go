package report

import (
	"database/sql"
	"fmt"
	"time"

	// Register the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mctopo/driver"
)

// RunInfo describes the machine and workload of a run.
type RunInfo struct {
	System   string
	Command  string
	NumCores int
	Clock    string
	Policy   string
	Budget   uint64
}

type runRow struct {
	id     string
	info   RunInfo
	report driver.ExitReport
	wall   time.Duration
	at     time.Time
}

// Recorder stores runs in a SQLite database. Rows are buffered and written
// on Flush, which is also registered to run at exit.
type Recorder struct {
	db      *sql.DB
	path    string
	pending []runRow
}

// NewRecorder opens, or creates, the database at path.
func NewRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database %s: %w", path, err)
	}

	r := &Recorder{db: db, path: path}

	if err := r.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

func (r *Recorder) createTables() error {
	stmts := []string{`
		CREATE TABLE IF NOT EXISTS runs
		(
			run_id     VARCHAR(32) PRIMARY KEY,
			recorded   TEXT        NOT NULL,
			system     VARCHAR(100),
			command    VARCHAR(100),
			num_cores  INTEGER,
			clock      VARCHAR(32),
			policy     VARCHAR(32),
			budget     INTEGER,
			ticks      INTEGER     NOT NULL,
			cause      VARCHAR(32) NOT NULL,
			detail     TEXT,
			events     INTEGER,
			wall_ns    INTEGER
		);`, `
		CREATE TABLE IF NOT EXISTS cores
		(
			run_id     VARCHAR(32) NOT NULL,
			name       VARCHAR(100) NOT NULL,
			cycles     INTEGER,
			committed  INTEGER,
			stalls     INTEGER,
			exited     BOOLEAN,
			exit_tick  INTEGER
		);`, `
		CREATE TABLE IF NOT EXISTS caches
		(
			run_id     VARCHAR(32) NOT NULL,
			name       VARCHAR(100) NOT NULL,
			hits       INTEGER,
			misses     INTEGER,
			writebacks INTEGER
		);`, `
		CREATE INDEX IF NOT EXISTS cores_run_id_index ON cores (run_id);`, `
		CREATE INDEX IF NOT EXISTS caches_run_id_index ON caches (run_id);`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("failed to create tables in %s: %w", r.path, err)
		}
	}

	return nil
}

// Record buffers a run and returns its id.
func (r *Recorder) Record(info RunInfo, rep driver.ExitReport, wall time.Duration) string {
	id := xid.New().String()

	r.pending = append(r.pending, runRow{
		id:     id,
		info:   info,
		report: rep,
		wall:   wall,
		at:     time.Now(),
	})

	return id
}

// Flush writes every buffered run in one transaction.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, row := range r.pending {
		if err := insertRun(tx, row); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit runs: %w", err)
	}

	r.pending = nil

	return nil
}

func insertRun(tx *sql.Tx, row runRow) error {
	rep := row.report

	_, err := tx.Exec(
		`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.id, row.at.UTC().Format(time.RFC3339),
		row.info.System, row.info.Command, row.info.NumCores,
		row.info.Clock, row.info.Policy, row.info.Budget,
		rep.TicksElapsed, string(rep.Cause), rep.Detail, rep.Events,
		row.wall.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", row.id, err)
	}

	for _, c := range rep.Cores {
		_, err := tx.Exec(
			`INSERT INTO cores VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row.id, c.Name, c.Cycles, c.Committed, c.Stalls, c.Exited, c.ExitTick,
		)
		if err != nil {
			return fmt.Errorf("failed to insert core %s: %w", c.Name, err)
		}
	}

	for _, c := range rep.Caches {
		_, err := tx.Exec(
			`INSERT INTO caches VALUES (?, ?, ?, ?, ?)`,
			row.id, c.Name, c.Hits, c.Misses, c.Writebacks,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cache %s: %w", c.Name, err)
		}
	}

	return nil
}

// DB returns the underlying database.
func (r *Recorder) DB() *sql.DB {
	return r.db
}

// Close flushes and closes the database.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}

	return r.db.Close()
}
