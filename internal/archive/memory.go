package archive

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"tidy-go/internal/tidy"
)

// MemoryArchive keeps snapshots in memory. Safe for concurrent use.
type MemoryArchive struct {
	clock tidy.Clock
	items map[string]memoryItem
	mu    sync.RWMutex
}

type memoryItem struct {
	data []byte
	meta tidy.ArchiveItem
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive(clock tidy.Clock) *MemoryArchive {
	if clock == nil {
		clock = tidy.RealClock{}
	}
	return &MemoryArchive{clock: clock, items: make(map[string]memoryItem)}
}

func (m *MemoryArchive) Put(name string, r io.Reader, size int64) error {
	if err := validName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[name] = memoryItem{
		data: data,
		meta: tidy.ArchiveItem{Name: name, Size: size, ModTime: m.clock.Now()},
	}
	return nil
}

func (m *MemoryArchive) Get(name string, w io.Writer) error {
	m.mu.RLock()
	item, ok := m.items[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("snapshot not found: %s", name)
	}
	if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (m *MemoryArchive) List() ([]tidy.ArchiveItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]tidy.ArchiveItem, 0, len(m.items))
	for _, it := range m.items {
		items = append(items, it.meta)
	}
	sortNewestFirst(items)
	return items, nil
}

func (m *MemoryArchive) ValidateSetup() error {
	return nil
}

var _ tidy.Archive = (*MemoryArchive)(nil)
