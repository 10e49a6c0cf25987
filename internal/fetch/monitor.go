package fetch

import "sync"

// Process-wide list of attempted URLs, used for diagnostics and tests
var monitoring struct {
	mu      sync.Mutex
	enabled bool
	urls    []string
}

// Monitor enables request observation. Calling it again keeps the URLs
// already observed.
func Monitor() {
	monitoring.mu.Lock()
	defer monitoring.mu.Unlock()
	monitoring.enabled = true
}

// Fetches returns a copy of the observed URLs, or nil if monitoring was never enabled
func Fetches() []string {
	monitoring.mu.Lock()
	defer monitoring.mu.Unlock()
	if !monitoring.enabled {
		return nil
	}
	out := make([]string, len(monitoring.urls))
	copy(out, monitoring.urls)
	return out
}

// FetchesCount returns the number of observed URLs
func FetchesCount() int {
	monitoring.mu.Lock()
	defer monitoring.mu.Unlock()
	return len(monitoring.urls)
}

func record(url string) {
	monitoring.mu.Lock()
	defer monitoring.mu.Unlock()
	if monitoring.enabled {
		monitoring.urls = append(monitoring.urls, url)
	}
}
