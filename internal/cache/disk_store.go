package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// DiskStore implements Store with one file per key inside a directory
type DiskStore struct {
	dir    string
	logger logrus.FieldLogger
}

// NewDiskStore creates a disk store rooted at dir. A nil logger selects the
// logrus standard logger.
func NewDiskStore(dir string, logger logrus.FieldLogger) *DiskStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DiskStore{dir: dir, logger: logger}
}

// Dir returns the directory holding the files
func (d *DiskStore) Dir() string {
	return d.dir
}

func (d *DiskStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(d.dir, key), nil
}

// Get reads the file stored under key
func (d *DiskStore) Get(key string) ([]byte, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

// Set writes value to a temporary file and renames it over key
func (d *DiskStore) Set(key string, value []byte) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(value)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	d.logger.Debugf("Cached file: %s", path)
	return nil
}

// Remove deletes the file stored under key
func (d *DiskStore) Remove(key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Init ensures the cache directory exists
func (d *DiskStore) Init() error {
	return os.MkdirAll(d.dir, 0755)
}
