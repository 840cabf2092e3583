package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tidy-go/internal/tidy"
)

// fileSystemStore keeps staged plans as JSON files.
//
// Directory structure:
//
//	<staging_dir>/
//	  index.json      (staged plan ids, oldest first)
//	  plans/
//	    <plan_id>.json
type fileSystemStore struct {
	stagingDir string
	plansDir   string
}

// NewFileSystemPlanStore creates a plan store rooted at stagingDir.
func NewFileSystemPlanStore(stagingDir string, clock tidy.Clock, maxPlans int) (tidy.PlanStore, error) {
	plansDir := filepath.Join(stagingDir, "plans")
	if err := os.MkdirAll(plansDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	store := &fileSystemStore{stagingDir: stagingDir, plansDir: plansDir}
	return newPlanStaging(store, clock, maxPlans), nil
}

func (f *fileSystemStore) Put(id string, data []byte) error {
	path, err := f.planPath(id)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func (f *fileSystemStore) Get(id string) ([]byte, error) {
	path, err := f.planPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (f *fileSystemStore) Delete(id string) error {
	path, err := f.planPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *fileSystemStore) Index() ([]string, error) {
	data, err := os.ReadFile(f.indexPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", f.indexPath(), err)
	}
	return ids, nil
}

func (f *fileSystemStore) SetIndex(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return writeFileAtomic(f.indexPath(), data)
}

func (f *fileSystemStore) indexPath() string {
	return filepath.Join(f.stagingDir, "index.json")
}

// planPath maps an id to its file, refusing ids that would escape plansDir.
func (f *fileSystemStore) planPath(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid plan id: %q", id)
	}
	return filepath.Join(f.plansDir, id+".json"), nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	success = true
	return nil
}
