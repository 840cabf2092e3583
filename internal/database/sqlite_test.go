package database

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"tidy-go/internal/tidy"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

var testTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newEntry(src, dst string) *tidy.UndoEntry {
	return &tidy.UndoEntry{
		RunID:       "run-1",
		Kind:        tidy.ActionMove,
		Transfer:    tidy.TransferMove,
		Source:      src,
		Destination: dst,
		Root:        "/data",
		Size:        42,
		ModTime:     testTime,
		Hash:        "abc123",
		CreatedAt:   testTime.Add(time.Minute),
	}
}

func TestSQLiteDatabase_Append(t *testing.T) {
	t.Run("assigns increasing ids", func(t *testing.T) {
		db := newTestDB(t)

		first := newEntry("/data/a.txt", "/data/Documents/a.txt")
		second := newEntry("/data/b.txt", "/data/Documents/b.txt")
		if err := db.Append(first); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := db.Append(second); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if first.ID == 0 || second.ID <= first.ID {
			t.Errorf("ids = %d, %d; want increasing and non-zero", first.ID, second.ID)
		}
	})

	t.Run("defaults status to done", func(t *testing.T) {
		db := newTestDB(t)

		e := newEntry("/data/a.txt", "/data/Documents/a.txt")
		if err := db.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if e.Status != tidy.EntryDone {
			t.Errorf("Status = %q, want %q", e.Status, tidy.EntryDone)
		}
	})

	t.Run("round trips every field", func(t *testing.T) {
		db := newTestDB(t)

		e := newEntry("/data/a.txt", "/data/Documents/a (1).txt")
		e.Kind = tidy.ActionRename
		e.Transfer = tidy.TransferCopy
		e.Note = "kept as copy"
		e.CreatedDirs = []string{"/data/Documents/2024", "/data/Documents"}
		if err := db.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		got, err := db.FindEntry(e.ID)
		if err != nil {
			t.Fatalf("FindEntry() error = %v", err)
		}
		if got == nil {
			t.Fatal("FindEntry() = nil")
		}
		if got.RunID != "run-1" || got.Kind != tidy.ActionRename || got.Transfer != tidy.TransferCopy {
			t.Errorf("got %+v", got)
		}
		if got.Source != e.Source || got.Destination != e.Destination || got.Root != "/data" {
			t.Errorf("paths = %q -> %q (root %q)", got.Source, got.Destination, got.Root)
		}
		if got.Size != 42 || got.Hash != "abc123" || got.Note != "kept as copy" {
			t.Errorf("got size=%d hash=%q note=%q", got.Size, got.Hash, got.Note)
		}
		if !got.ModTime.Equal(testTime) {
			t.Errorf("ModTime = %v, want %v", got.ModTime, testTime)
		}
		if !got.CreatedAt.Equal(testTime.Add(time.Minute)) {
			t.Errorf("CreatedAt = %v", got.CreatedAt)
		}
		if !slices.Equal(got.CreatedDirs, e.CreatedDirs) {
			t.Errorf("CreatedDirs = %q, want %q", got.CreatedDirs, e.CreatedDirs)
		}
	})

	t.Run("no created folders reads back as nil", func(t *testing.T) {
		db := newTestDB(t)

		e := newEntry("/data/a.txt", "/data/Documents/a.txt")
		if err := db.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		got, err := db.FindEntry(e.ID)
		if err != nil {
			t.Fatalf("FindEntry() error = %v", err)
		}
		if got.CreatedDirs != nil {
			t.Errorf("CreatedDirs = %q, want nil", got.CreatedDirs)
		}
	})

	t.Run("concurrent appends", func(t *testing.T) {
		db := newTestDB(t)

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e := newEntry(fmt.Sprintf("/data/%02d.txt", i), fmt.Sprintf("/data/Documents/%02d.txt", i))
				if err := db.Append(e); err != nil {
					t.Errorf("Append() error = %v", err)
				}
			}()
		}
		wg.Wait()

		entries, err := db.Entries()
		if err != nil {
			t.Fatalf("Entries() error = %v", err)
		}
		if len(entries) != 20 {
			t.Errorf("len(Entries()) = %d, want 20", len(entries))
		}
	})
}

func TestSQLiteDatabase_Entries(t *testing.T) {
	db := newTestDB(t)

	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		e := newEntry("/data/"+name, "/data/Documents/"+name)
		if err := db.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		ids = append(ids, e.ID)
	}
	if err := db.MarkStatus(ids[1], tidy.EntryReverted, ""); err != nil {
		t.Fatalf("MarkStatus() error = %v", err)
	}
	if err := db.MarkStatus(ids[2], tidy.EntryFailed, "destination modified"); err != nil {
		t.Fatalf("MarkStatus() error = %v", err)
	}

	tests := []struct {
		name     string
		statuses []tidy.EntryStatus
		want     []int64
	}{
		{"all", nil, ids},
		{"done", []tidy.EntryStatus{tidy.EntryDone}, ids[:1]},
		{"done or failed", []tidy.EntryStatus{tidy.EntryDone, tidy.EntryFailed}, []int64{ids[0], ids[2]}},
		{"reverted", []tidy.EntryStatus{tidy.EntryReverted}, ids[1:2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Entries(tt.statuses...)
			if err != nil {
				t.Fatalf("Entries() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len(Entries()) = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("Entries()[%d].ID = %d, want %d", i, got[i].ID, tt.want[i])
				}
			}
		})
	}

	failed, _ := db.FindEntry(ids[2])
	if failed.Note != "destination modified" {
		t.Errorf("Note = %q", failed.Note)
	}
}

func TestSQLiteDatabase_MarkStatus_Missing(t *testing.T) {
	db := newTestDB(t)
	if err := db.MarkStatus(99, tidy.EntryReverted, ""); err == nil {
		t.Error("MarkStatus() expected error for missing entry")
	}
}

func TestSQLiteDatabase_FindEntry_Missing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.FindEntry(7)
	if err != nil {
		t.Fatalf("FindEntry() error = %v", err)
	}
	if got != nil {
		t.Errorf("FindEntry() = %+v, want nil", got)
	}
}

func TestSQLiteDatabase_Clear(t *testing.T) {
	db := newTestDB(t)

	if err := db.Append(newEntry("/data/a", "/data/Documents/a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	run := &tidy.Run{UUID: "u-1", Operation: "apply", StartedAt: testTime}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if err := db.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	entries, err := db.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(Entries()) = %d after Clear, want 0", len(entries))
	}
	runs, _ := db.ListRuns(0)
	if len(runs) != 1 {
		t.Errorf("runs should survive Clear, got %d", len(runs))
	}
}

func TestSQLiteDatabase_Runs(t *testing.T) {
	t.Run("create and finish", func(t *testing.T) {
		db := newTestDB(t)

		run := &tidy.Run{UUID: "u-1", Operation: "apply", Parameters: "/data", StartedAt: testTime}
		if err := db.CreateRun(run); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}
		if !run.Persisted() {
			t.Fatal("run not persisted")
		}
		if run.Status != tidy.RunRunning {
			t.Errorf("Status = %q, want %q", run.Status, tidy.RunRunning)
		}

		run.FinishedAt = testTime.Add(time.Second)
		run.Status = tidy.RunPartial
		run.Succeeded = 9
		run.Failed = 1
		if err := db.FinishRun(run); err != nil {
			t.Fatalf("FinishRun() error = %v", err)
		}

		runs, err := db.ListRuns(10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("len(ListRuns()) = %d, want 1", len(runs))
		}
		got := runs[0]
		if got.Status != tidy.RunPartial || got.Succeeded != 9 || got.Failed != 1 {
			t.Errorf("got %+v", got)
		}
		if got.Parameters != "/data" || !got.FinishedAt.Equal(run.FinishedAt) {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("finish unpersisted", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.FinishRun(&tidy.Run{UUID: "u-x"}); err == nil {
			t.Error("FinishRun() expected error for unpersisted run")
		}
	})

	t.Run("newest first with limit", func(t *testing.T) {
		db := newTestDB(t)

		maxID, err := db.MaxRunID()
		if err != nil {
			t.Fatalf("MaxRunID() error = %v", err)
		}
		if maxID != 0 {
			t.Errorf("MaxRunID() = %d on empty db, want 0", maxID)
		}

		var last *tidy.Run
		for i := range 3 {
			last = &tidy.Run{UUID: fmt.Sprintf("u-%d", i), Operation: "apply", StartedAt: testTime}
			if err := db.CreateRun(last); err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}
		}

		runs, err := db.ListRuns(2)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("len(ListRuns(2)) = %d", len(runs))
		}
		if runs[0].UUID != "u-2" || runs[1].UUID != "u-1" {
			t.Errorf("order = %s, %s", runs[0].UUID, runs[1].UUID)
		}
		if !runs[0].FinishedAt.IsZero() {
			t.Errorf("unfinished run has FinishedAt %v", runs[0].FinishedAt)
		}

		maxID, _ = db.MaxRunID()
		if maxID != last.ID {
			t.Errorf("MaxRunID() = %d, want %d", maxID, last.ID)
		}
	})
}

func TestSQLiteDatabase_BackupTo(t *testing.T) {
	db := newTestDB(t)
	if err := db.Append(newEntry("/data/a.txt", "/data/Documents/a.txt")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "backup.db")
	if err := db.BackupTo(destPath); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	backup, err := NewSQLiteDatabase(destPath)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer backup.Close()

	if err := backup.CheckMigrations(); err != nil {
		t.Errorf("backup schema: %v", err)
	}
	entries, err := backup.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Source != "/data/a.txt" {
		t.Errorf("backup entries = %+v", entries)
	}
}

func TestSQLiteDatabase_CheckMigrations(t *testing.T) {
	t.Run("fails on DB without migrations applied", func(t *testing.T) {
		db, err := NewSQLiteDatabase(":memory:")
		if err != nil {
			t.Fatalf("NewSQLiteDatabase() error = %v", err)
		}
		defer db.Close()

		if err := db.CheckMigrations(); err == nil {
			t.Error("CheckMigrations() expected error for missing schema")
		}
	})

	t.Run("passes after Migrate", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() = %v", err)
		}
	})
}
