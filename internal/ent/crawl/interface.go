package crawl

import "context"

// Stats summarizes one crawl run over all configured sources.
type Stats struct {
	// NewCanvases is the number of canvases first seen during the run.
	NewCanvases int

	// Changed reports whether any activity was applied.
	Changed bool
}

// Crawler walks the configured activity stream sources once and
// reconciles the index with the observed activities.
type Crawler interface {
	// Crawl runs one full crawl. Unreachable sources are skipped, not
	// fatal; the returned error reports infrastructure failures only.
	Crawl(ctx context.Context) (Stats, error)

	// Close releases database and key-value store handles.
	Close() error
}
