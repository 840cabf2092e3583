package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tidy-go/internal/database/migrations"
	"tidy-go/internal/tidy"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase stores the undo log and the run history in SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

var _ tidy.UndoLog = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens the database at path. path can be a file path or
// ":memory:" for a session-scoped log.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already configured connection.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: PRAGMAs are per connection and every connection to
	// ":memory:" would otherwise be a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// Path returns the file the database was opened from, or "" when wrapped.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate brings the schema up to date.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations reports whether the schema is current.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// BackupTo writes a consistent snapshot of the database to destPath.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database to %s: %w", destPath, err)
	}
	return nil
}

// Undo log

const entryColumns = `id, run_id, kind, transfer, source, destination, root, size, mod_time, hash, created_at, status, note, created_dirs`

func (s *SQLiteDatabase) Append(e *tidy.UndoEntry) error {
	if e.Status == "" {
		e.Status = tidy.EntryDone
	}
	dirs, err := encodeDirs(e.CreatedDirs)
	if err != nil {
		return fmt.Errorf("encoding created folders for %s: %w", e.Source, err)
	}
	res, err := s.db.Exec(`INSERT INTO undo_entries
		(run_id, kind, transfer, source, destination, root, size, mod_time, hash, created_at, status, note, created_dirs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, string(e.Kind), string(e.Transfer), e.Source, e.Destination, e.Root,
		e.Size, toNanos(e.ModTime), e.Hash, toNanos(e.CreatedAt), string(e.Status), e.Note, dirs)
	if err != nil {
		return fmt.Errorf("appending undo entry for %s: %w", e.Source, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading undo entry id: %w", err)
	}
	e.ID = id
	return nil
}

// Entries returns entries oldest first, restricted to the given statuses
// when any are passed.
func (s *SQLiteDatabase) Entries(statuses ...tidy.EntryStatus) ([]*tidy.UndoEntry, error) {
	query := "SELECT " + entryColumns + " FROM undo_entries"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, st := range statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		query += " WHERE status IN (" + strings.Join(marks, ", ") + ")"
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing undo entries: %w", err)
	}
	defer rows.Close()

	var entries []*tidy.UndoEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing undo entries: %w", err)
	}
	return entries, nil
}

// FindEntry returns the entry with the given id, or nil if it does not exist.
func (s *SQLiteDatabase) FindEntry(id int64) (*tidy.UndoEntry, error) {
	row := s.db.QueryRow("SELECT "+entryColumns+" FROM undo_entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (s *SQLiteDatabase) MarkStatus(id int64, status tidy.EntryStatus, note string) error {
	res, err := s.db.Exec("UPDATE undo_entries SET status = ?, note = ? WHERE id = ?", string(status), note, id)
	if err != nil {
		return fmt.Errorf("marking undo entry %d %s: %w", id, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking undo entry %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("undo entry %d not found", id)
	}
	return nil
}

// Clear drops every undo entry. Run history is kept.
func (s *SQLiteDatabase) Clear() error {
	if _, err := s.db.Exec("DELETE FROM undo_entries"); err != nil {
		return fmt.Errorf("clearing undo log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*tidy.UndoEntry, error) {
	var (
		e                  tidy.UndoEntry
		kind, transfer     string
		status             string
		modTime, createdAt int64
		dirs               string
	)
	err := row.Scan(&e.ID, &e.RunID, &kind, &transfer, &e.Source, &e.Destination, &e.Root,
		&e.Size, &modTime, &e.Hash, &createdAt, &status, &e.Note, &dirs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning undo entry: %w", err)
	}
	if e.CreatedDirs, err = decodeDirs(dirs); err != nil {
		return nil, fmt.Errorf("scanning undo entry %d: %w", e.ID, err)
	}
	e.Kind = tidy.ActionKind(kind)
	e.Transfer = tidy.Transfer(transfer)
	e.Status = tidy.EntryStatus(status)
	e.ModTime = fromNanos(modTime)
	e.CreatedAt = fromNanos(createdAt)
	return &e, nil
}

// Created folders are stored as a JSON array; no folders is stored as ''.
func encodeDirs(dirs []string) (string, error) {
	if len(dirs) == 0 {
		return "", nil
	}
	b, err := json.Marshal(dirs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeDirs(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var dirs []string
	if err := json.Unmarshal([]byte(s), &dirs); err != nil {
		return nil, fmt.Errorf("decoding created folders: %w", err)
	}
	return dirs, nil
}

// Runs

// CreateRun records the start of a run and sets r.ID.
func (s *SQLiteDatabase) CreateRun(r *tidy.Run) error {
	if r.Status == "" {
		r.Status = tidy.RunRunning
	}
	res, err := s.db.Exec(`INSERT INTO runs (uuid, operation, parameters, started_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		r.UUID, r.Operation, r.Parameters, toNanos(r.StartedAt), string(r.Status))
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run id: %w", err)
	}
	r.ID = id
	return nil
}

// FinishRun stores the outcome of a run created with CreateRun.
func (s *SQLiteDatabase) FinishRun(r *tidy.Run) error {
	if !r.Persisted() {
		return fmt.Errorf("run %s was never created", r.UUID)
	}
	_, err := s.db.Exec(`UPDATE runs SET finished_at = ?, status = ?, succeeded = ?, failed = ? WHERE id = ?`,
		toNanos(r.FinishedAt), string(r.Status), r.Succeeded, r.Failed, r.ID)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *SQLiteDatabase) ListRuns(limit int) ([]*tidy.Run, error) {
	query := `SELECT id, uuid, operation, parameters, started_at, finished_at, status, succeeded, failed
		FROM runs ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*tidy.Run
	for rows.Next() {
		var (
			r        tidy.Run
			started  int64
			finished sql.NullInt64
			status   string
		)
		if err := rows.Scan(&r.ID, &r.UUID, &r.Operation, &r.Parameters, &started, &finished,
			&status, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = fromNanos(started)
		if finished.Valid {
			r.FinishedAt = fromNanos(finished.Int64)
		}
		r.Status = tidy.RunStatus(status)
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// MaxRunID returns the highest run id, or 0 when no run was recorded.
func (s *SQLiteDatabase) MaxRunID() (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(id) FROM runs").Scan(&id); err != nil {
		return 0, fmt.Errorf("getting max run id: %w", err)
	}
	return id.Int64, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
