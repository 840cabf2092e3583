package testutil

import (
	"errors"
	"sync"
	"testing"

	"tidy-go/internal/database"
	"tidy-go/internal/tidy"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB)
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// ErrAppendRefused is returned by FailingUndoLog for refused appends.
var ErrAppendRefused = errors.New("undo log refused append")

// FailingUndoLog wraps an UndoLog and refuses appends for chosen sources.
type FailingUndoLog struct {
	tidy.UndoLog

	mu    sync.Mutex
	fails map[string]bool
}

// NewFailingUndoLog refuses appends whose Source is one of sources.
func NewFailingUndoLog(inner tidy.UndoLog, sources ...string) *FailingUndoLog {
	l := &FailingUndoLog{UndoLog: inner, fails: make(map[string]bool)}
	for _, s := range sources {
		l.fails[s] = true
	}
	return l
}

func (l *FailingUndoLog) Append(e *tidy.UndoEntry) error {
	l.mu.Lock()
	fail := l.fails[e.Source]
	l.mu.Unlock()
	if fail {
		return ErrAppendRefused
	}
	return l.UndoLog.Append(e)
}
