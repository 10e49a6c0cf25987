package cache

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iTrooz/fetch-cache/internal/fetch"
)

const (
	indexKey   = "index.json"
	metaSuffix = ".meta.json"
	dataSuffix = ".data"
)

// Entry describes one cached resource. The same shape is used in index.json
// and in the <id>.meta.json file.
type Entry struct {
	Status  int         `json:"status"`
	URL     string      `json:"url"`
	DataID  string      `json:"data"`
	Headers http.Header `json:"headers"`
}

func metaKey(id string) string {
	return id + metaSuffix
}

func dataKey(id string) string {
	return id + dataSuffix
}

// writeResponse persists the metadata file, then the payload file
func writeResponse(store Store, entry Entry, body []byte) error {
	meta, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := store.Set(metaKey(entry.DataID), meta); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := store.Set(dataKey(entry.DataID), body); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// readResponse rebuilds a response from the metadata and payload files of id
func readResponse(store Store, id string) (*fetch.Response, error) {
	raw, err := store.Get(metaKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Entry
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	body, err := store.Get(dataKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	return &fetch.Response{
		Status:  meta.Status,
		URL:     meta.URL,
		Headers: meta.Headers,
		Body:    body,
	}, nil
}

// removeResponse deletes both files of id
func removeResponse(store Store, id string) error {
	if err := store.Remove(metaKey(id)); err != nil {
		return err
	}
	return store.Remove(dataKey(id))
}
