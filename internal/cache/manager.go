package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/iTrooz/fetch-cache/internal/fetch"
)

// Fetcher performs the GET requests issued on a cache miss
type Fetcher interface {
	Get(ctx context.Context, url string, opts fetch.Options) (*fetch.Response, error)
}

// Source tells where a loaded response came from
type Source int

const (
	SourceNetwork Source = iota
	SourceCache
)

func (s Source) String() string {
	if s == SourceCache {
		return "HIT"
	}
	return "MISS"
}

// Stats counts the outcomes of Load calls on one manager
type Stats struct {
	Hits            int64
	Misses          int64
	ReadFailures    int64
	PersistFailures int64
}

// Manager is a disk-backed lookaside cache in front of a Fetcher, bound to
// one directory.
type Manager struct {
	dir     string
	store   Store
	fetcher Fetcher
	logger  logrus.FieldLogger
	newID   func() string

	once  sync.Once
	index *Index

	hits            atomic.Int64
	misses          atomic.Int64
	readFailures    atomic.Int64
	persistFailures atomic.Int64
}

// Option customizes a Manager
type Option func(*Manager)

// WithFetcher sets the fetcher used on cache misses
func WithFetcher(f Fetcher) Option {
	return func(m *Manager) {
		m.fetcher = f
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStore replaces the disk store of the directory. It only takes effect
// for the first manager that loads the directory in this process.
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithIDGenerator replaces the random identifier source, with the same
// first-loader caveat as WithStore.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		m.newID = gen
	}
}

// New creates a manager for dir. An empty dir selects the system temporary directory.
func New(dir string, opts ...Option) *Manager {
	if dir == "" {
		dir = os.TempDir()
	}
	m := &Manager{
		dir:     dir,
		fetcher: fetch.Default(),
		logger:  logrus.StandardLogger(),
		newID:   newUUID,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = NewDiskStore(dir, m.logger)
	}
	return m
}

// Dir returns the cache directory
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) loadIndex() *Index {
	m.once.Do(func() {
		m.index = sharedIndex(m.dir, m.store, m.logger, m.newID)
	})
	return m.index
}

// Len returns the number of cached URLs in the directory
func (m *Manager) Len() int {
	return m.loadIndex().Len()
}

// Stats returns a snapshot of the counters
func (m *Manager) Stats() Stats {
	return Stats{
		Hits:            m.hits.Load(),
		Misses:          m.misses.Load(),
		ReadFailures:    m.readFailures.Load(),
		PersistFailures: m.persistFailures.Load(),
	}
}

// Load behaves like a GET through the fetcher, but serves the response from
// disk when it was stored before.
func (m *Manager) Load(ctx context.Context, url string, opts fetch.Options) (*fetch.Response, error) {
	resp, _, err := m.LoadSource(ctx, url, opts)
	return resp, err
}

// LoadSource is Load that also reports whether the response came from disk
func (m *Manager) LoadSource(ctx context.Context, url string, opts fetch.Options) (*fetch.Response, Source, error) {
	if url == "" {
		return nil, SourceNetwork, fmt.Errorf("%w: GET url is undefined", fetch.ErrInvalidRequest)
	}
	if err := opts.Validate(); err != nil {
		return nil, SourceNetwork, fmt.Errorf("%w: %v", fetch.ErrInvalidRequest, err)
	}

	idx := m.loadIndex()
	unlock := idx.lock(url)
	defer unlock()

	entry, found := idx.Lookup(url)
	switch {
	case !found:
		m.logger.Debugf("Not in cache %s", url)
	case opts.Invalidate:
		m.logger.Infof("Invalidating cache %s", url)
	default:
		resp, err := readResponse(idx.store, entry.DataID)
		if err == nil {
			m.hits.Add(1)
			m.logger.Debugf("Cache hit for %s", url)
			return resp, SourceCache, nil
		}
		m.readFailures.Add(1)
		m.logger.Warnf("Cached entry for %s is unreadable, re-fetching: %v", url, err)
	}

	resp, err := m.fetcher.Get(ctx, url, opts)
	if err != nil {
		return nil, SourceNetwork, err
	}
	m.misses.Add(1)

	if err := m.persist(idx, url, entry, found, resp); err != nil {
		m.persistFailures.Add(1)
		m.logger.Errorf("Failed to cache response for %s: %v", url, err)
	}
	return resp, SourceNetwork, nil
}

// persist writes the response files, then the index entry pointing to them.
// An existing entry keeps its identifier so its files are overwritten in place.
func (m *Manager) persist(idx *Index, url string, prev Entry, found bool, resp *fetch.Response) error {
	id := prev.DataID
	if !found {
		id = idx.allocateID()
		defer idx.release(id)
	}

	entry := Entry{
		Status:  resp.Status,
		URL:     resp.URL,
		DataID:  id,
		Headers: resp.Headers,
	}
	if err := writeResponse(idx.store, entry, resp.Body); err != nil {
		return &PersistError{URL: url, Err: err}
	}
	if err := idx.put(url, entry); err != nil {
		return &PersistError{URL: url, Err: err}
	}
	return nil
}

// Invalidate drops the cached entry of url and deletes its files.
// It reports whether an entry existed.
func (m *Manager) Invalidate(url string) (bool, error) {
	idx := m.loadIndex()
	unlock := idx.lock(url)
	defer unlock()

	entry, found, err := idx.remove(url)
	if !found {
		return false, nil
	}
	if err != nil {
		return true, &PersistError{URL: url, Err: err}
	}
	if err := removeResponse(idx.store, entry.DataID); err != nil {
		return true, fmt.Errorf("failed to remove cached files of %s: %w", url, err)
	}
	m.logger.Debugf("Invalidated cache entry %s (%s)", url, entry.DataID)
	return true, nil
}
