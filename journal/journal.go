// Package journal records evaluated worlds in a SQLite database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/lama/wire"

	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("lama.journal")

// ErrEntryNotFound indicates the requested world was never recorded.
var ErrEntryNotFound = errors.New("journal entry not found")

// Entry describes one world run.
type Entry struct {
	WorldID    string
	SourceHash string // hex SHA-256 of the program text
	Entry      string // function called after main, if any
	Output     []string
	Result     *wire.Value
	Fault      *wire.Fault
	Started    time.Time
	Duration   time.Duration
}

// Journal is an append-only log of world runs.
type Journal struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens or creates the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	// One connection keeps the pragma below in effect for every statement.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		world_id      TEXT PRIMARY KEY,
		source_hash   TEXT NOT NULL,
		entry         TEXT NOT NULL DEFAULT '',
		output        BLOB,
		result        BLOB,
		fault_kind    TEXT NOT NULL DEFAULT '',
		fault         BLOB,
		started_at    INTEGER NOT NULL,
		duration_ns   INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Infof("journal open at %s", dbPath)
	return &Journal{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Path returns the database file the journal writes to.
func (j *Journal) Path() string { return j.dbPath }

// Record appends e to the journal.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	output, err := wire.Marshal(e.Output)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	var result, fault []byte
	faultKind := ""
	if e.Result != nil {
		if result, err = wire.Marshal(e.Result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	}
	if e.Fault != nil {
		faultKind = e.Fault.Kind
		if fault, err = wire.Marshal(e.Fault); err != nil {
			return fmt.Errorf("encoding fault: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO runs (world_id, source_hash, entry, output, result, fault_kind, fault, started_at, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.WorldID, e.SourceHash, e.Entry, output, result, faultKind, fault,
		e.Started.UnixNano(), int64(e.Duration),
	)
	if err != nil {
		log.Errorf("recording world %s: %s", e.WorldID, err)
		return fmt.Errorf("recording world %s: %w", e.WorldID, err)
	}
	return nil
}

const selectColumns = `SELECT world_id, source_hash, entry, output, result, fault, started_at, duration_ns FROM runs`

// Get returns the entry recorded for worldID.
func (j *Journal) Get(ctx context.Context, worldID string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, selectColumns+" WHERE world_id = ?", worldID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	return e, err
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return j.query(ctx, selectColumns+" ORDER BY started_at DESC LIMIT ?", limit)
}

// BySource returns every run of the program with the given hash, oldest
// first.
func (j *Journal) BySource(ctx context.Context, sourceHash string) ([]Entry, error) {
	return j.query(ctx, selectColumns+" WHERE source_hash = ? ORDER BY started_at", sourceHash)
}

// FaultCounts returns the number of recorded runs per fault kind.
func (j *Journal) FaultCounts(ctx context.Context) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT fault_kind, COUNT(*) FROM runs WHERE fault_kind != '' GROUP BY fault_kind")
	if err != nil {
		return nil, fmt.Errorf("querying fault counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning fault counts: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e                     Entry
		output, result, fault []byte
		started, duration     int64
	)
	err := s.Scan(&e.WorldID, &e.SourceHash, &e.Entry, &output, &result, &fault, &started, &duration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scanning journal entry: %w", err)
	}
	if len(output) > 0 {
		if err := wire.Unmarshal(output, &e.Output); err != nil {
			return e, err
		}
	}
	if len(result) > 0 {
		e.Result = &wire.Value{}
		if err := wire.Unmarshal(result, e.Result); err != nil {
			return e, err
		}
	}
	if len(fault) > 0 {
		e.Fault = &wire.Fault{}
		if err := wire.Unmarshal(fault, e.Fault); err != nil {
			return e, err
		}
	}
	e.Started = time.Unix(0, started)
	e.Duration = time.Duration(duration)
	return e, nil
}
