package canvasindexer

import (
	"context"

	"github.com/iiifsearch/canvasindexer/internal/ent/crawl"
	"github.com/iiifsearch/canvasindexer/internal/ent/facet"
	"github.com/iiifsearch/canvasindexer/pkg/config"
)

// canvasindexer is an implementation of CanvasIndexer interface.
type canvasindexer struct {
	cfg config.Config
}

// New creates a new instance of CanvasIndexer.
func New(
	cfg config.Config,
) CanvasIndexer {
	res := canvasindexer{
		cfg: cfg}
	return &res
}

// Crawl runs one crawl over all configured activity streams.
func (ci *canvasindexer) Crawl(
	ctx context.Context,
	c crawl.Crawler,
) (crawl.Stats, error) {
	return c.Crawl(ctx)
}

// BuildFacets regenerates the persisted facet summary.
func (ci *canvasindexer) BuildFacets(ctx context.Context, b facet.Builder) error {
	return b.Build(ctx)
}
