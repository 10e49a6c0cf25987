package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Index maps request URLs to entries for one cache directory. All managers
// bound to the same directory share a single Index through the registry.
type Index struct {
	dir    string
	store  Store
	logger logrus.FieldLogger
	newID  func() string

	loadOnce sync.Once

	mu       sync.Mutex
	entries  map[string]Entry
	reserved map[string]struct{}

	keysMu sync.Mutex
	keys   map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// registry is the process-wide mirror of loaded index files, keyed by directory
var registry = struct {
	mu      sync.Mutex
	indexes map[string]*Index
}{indexes: make(map[string]*Index)}

func registryKey(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	return abs
}

// sharedIndex returns the index of dir, loading index.json on first use.
// index.json is read outside the registry lock.
func sharedIndex(dir string, store Store, logger logrus.FieldLogger, newID func() string) *Index {
	key := registryKey(dir)

	registry.mu.Lock()
	idx, ok := registry.indexes[key]
	if !ok {
		idx = &Index{
			dir:      key,
			store:    store,
			logger:   logger,
			newID:    newID,
			entries:  make(map[string]Entry),
			reserved: make(map[string]struct{}),
			keys:     make(map[string]*keyLock),
		}
		registry.indexes[key] = idx
	}
	registry.mu.Unlock()

	idx.loadOnce.Do(idx.load)
	return idx
}

func (idx *Index) load() {
	if err := idx.store.Init(); err != nil {
		idx.logger.Errorf("Failed to create cache directory %s: %v", idx.dir, err)
	}

	raw, err := idx.store.Get(indexKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			idx.logger.Debugf("No cache index in %s, starting empty", idx.dir)
		} else {
			idx.logger.Warnf("Failed to read cache index in %s, starting empty: %v", idx.dir, err)
		}
		return
	}

	var entries map[string]Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		idx.logger.Warnf("Corrupt cache index in %s, starting empty: %v", idx.dir, err)
		return
	}
	if entries == nil {
		idx.logger.Warnf("Empty cache index in %s, starting empty", idx.dir)
		return
	}

	idx.mu.Lock()
	idx.entries = entries
	idx.mu.Unlock()
	idx.logger.Debugf("Loaded %d cache entries from %s", len(entries), idx.dir)
}

// Lookup returns the entry stored for url
func (idx *Index) Lookup(url string) (Entry, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	entry, ok := idx.entries[url]
	return entry, ok
}

// Len returns the number of entries
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.entries)
}

// put records entry for url and rewrites index.json
func (idx *Index) put(url string, entry Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[url] = entry
	return idx.persistLocked()
}

// remove drops the entry for url and rewrites index.json
func (idx *Index) remove(url string) (Entry, bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	entry, ok := idx.entries[url]
	if !ok {
		return Entry{}, false, nil
	}
	delete(idx.entries, url)
	return entry, true, idx.persistLocked()
}

func (idx *Index) persistLocked() error {
	data, err := json.Marshal(idx.entries)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := idx.store.Set(indexKey, data); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// allocateID draws random identifiers until one is neither referenced by an
// entry nor reserved by an in-flight store. The caller must release it.
func (idx *Index) allocateID() string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for {
		id := idx.newID()
		if _, taken := idx.reserved[id]; taken {
			continue
		}
		if idx.inUseLocked(id) {
			continue
		}
		idx.reserved[id] = struct{}{}
		return id
	}
}

func (idx *Index) release(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.reserved, id)
}

func (idx *Index) inUseLocked(id string) bool {
	for _, entry := range idx.entries {
		if entry.DataID == id {
			return true
		}
	}
	return false
}

// lock serializes operations on one URL. The returned func releases it.
func (idx *Index) lock(url string) func() {
	idx.keysMu.Lock()
	l := idx.keys[url]
	if l == nil {
		l = &keyLock{}
		idx.keys[url] = l
	}
	l.refs++
	idx.keysMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		idx.keysMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(idx.keys, url)
		}
		idx.keysMu.Unlock()
	}
}

func newUUID() string {
	return uuid.NewString()
}
