package canvasindexer

import (
	"context"

	"github.com/iiifsearch/canvasindexer/internal/ent/crawl"
	"github.com/iiifsearch/canvasindexer/internal/ent/facet"
)

// CanvasIndexer is an interface for crawling IIIF curation activity
// streams and maintaining the derived search index.
type CanvasIndexer interface {
	// Crawl runs one crawl over all configured activity streams.
	Crawl(context.Context, crawl.Crawler) (crawl.Stats, error)

	// BuildFacets regenerates the persisted facet summary.
	BuildFacets(context.Context, facet.Builder) error
}
