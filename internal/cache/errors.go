package cache

import "fmt"

// PersistError reports that a fetched response could not be stored.
// Load never returns it; it is logged and counted in Stats.
type PersistError struct {
	URL string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.URL, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
