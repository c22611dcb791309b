package crawlio

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
	"github.com/iiifsearch/canvasindexer/internal/ent/activity"
	"github.com/iiifsearch/canvasindexer/internal/ent/bot"
	"github.com/iiifsearch/canvasindexer/internal/ent/crawl"
	"github.com/iiifsearch/canvasindexer/internal/ent/facet"
	"github.com/iiifsearch/canvasindexer/internal/ent/fetch"
	"github.com/iiifsearch/canvasindexer/internal/ent/kv"
	"github.com/iiifsearch/canvasindexer/internal/ent/parentmap"
	"github.com/iiifsearch/canvasindexer/internal/io/kvio"
	"github.com/iiifsearch/canvasindexer/pkg/config"
	"github.com/iiifsearch/canvasindexer/pkg/io/modelio"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var parentMapKey = []byte("parent-map")

// dbConn is the subset of the pgx pool the crawler uses.
type dbConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type crawlio struct {
	cfg     config.Config
	db      dbConn
	enc     gnfmt.Encoder
	fetcher fetch.Dereferencer
	store   kv.KeyVal
	pm      *parentmap.ParentMap
	facets  facet.Builder
	bots    bot.Dispatcher
}

// New creates the tables if needed, connects to the database and opens
// the parent map store.
func New(
	cfg config.Config,
	fetcher fetch.Dereferencer,
	facets facet.Builder,
	bots bot.Dispatcher,
) (crawl.Crawler, error) {
	res := crawlio{
		cfg:     cfg,
		enc:     gnfmt.GNjson{},
		fetcher: fetcher,
		facets:  facets,
		bots:    bots,
	}

	gdb, err := gormConn(cfg)
	if err != nil {
		return nil, err
	}
	defer gdb.Close()
	if err = modelio.New(gdb).Migrate(); err != nil {
		slog.Error("Cannot migrate tables", "error", err)
		return nil, err
	}

	res.db, err = pgxConn(cfg)
	if err != nil {
		return nil, err
	}

	res.store, err = kvio.New(cfg.ParentMapDir)
	if err != nil {
		return nil, err
	}
	if err = res.store.Open(); err != nil {
		return nil, err
	}
	res.pm, err = res.loadParentMap()
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (c *crawlio) Close() error {
	c.db.Close()
	return c.store.Close()
}

// Crawl walks every configured activity stream once. A source that
// cannot be reached is logged and skipped; the remaining sources are
// still crawled.
func (c *crawlio) Crawl(ctx context.Context) (crawl.Stats, error) {
	var res crawl.Stats
	for _, src := range c.cfg.ASSources {
		stats, err := c.crawlSource(ctx, src)
		if err != nil {
			return res, err
		}
		res.NewCanvases += stats.NewCanvases
		res.Changed = res.Changed || stats.Changed
	}
	slog.Info(
		"Crawl finished",
		"newCanvases", humanize.Comma(int64(res.NewCanvases)),
	)
	return res, nil
}

// crawlSource applies the not yet processed activities of one source.
// The feed is walked from its most recent page backwards so newer
// activities shadow older ones for the same object. A crawl log entry
// is appended even when nothing changed; derived data is only rebuilt
// after changes.
func (c *crawlio) crawlSource(
	ctx context.Context,
	src string,
) (crawl.Stats, error) {
	var res crawl.Stats

	lastCrawl, err := c.lastCrawlTime(ctx)
	if err != nil {
		return res, err
	}
	lookup, err := c.loadResolver(ctx)
	if err != nil {
		return res, err
	}

	slog.Info("Retrieving activity stream", "source", src)
	var coll activity.Collection
	if err = c.fetcher.GetJSON(ctx, src, &coll); err != nil {
		slog.Warn("Cannot access activity stream, skipping source",
			"source", src, "error", err)
		return res, nil
	}

	var page activity.Page
	if err = c.fetcher.GetJSON(ctx, coll.Last.URI, &page); err != nil {
		slog.Warn("Cannot access activity stream page, skipping source",
			"source", src, "error", err)
		return res, nil
	}

	// Only the most recent activity per object is applied within a run;
	// processing older ones after it would resurrect deleted documents.
	seen := make(map[string]bool)
	for pages := 1; ; pages++ {
		slog.Info("Going through activity stream page", "page", page.ID)
		for _, act := range page.OrderedItems {
			if !activity.ShouldProcess(act, lastCrawl, seen) {
				continue
			}
			// A failed activity counts as seen too: an older activity for
			// the same object must never be applied in its place.
			seen[act.Object.URI] = true
			switch act.Type {
			case activity.TypeCreate:
				n, err := c.processCreate(ctx, lookup, act)
				if err != nil {
					slog.Warn("Skipping activity", "activity", act.ID,
						"error", err)
					// the rollback discarded rows whose ids may already sit
					// in the cache
					lookup, err = c.loadResolver(ctx)
					if err != nil {
						return res, err
					}
					continue
				}
				res.NewCanvases += n
			case activity.TypeUpdate:
				if err = c.processDelete(ctx, act); err != nil {
					slog.Warn("Skipping activity", "activity", act.ID,
						"error", err)
					continue
				}
				lookup, err = c.loadResolver(ctx)
				if err != nil {
					return res, err
				}
				if _, err = c.processCreate(ctx, lookup, act); err != nil {
					slog.Warn("Skipping activity", "activity", act.ID,
						"error", err)
					// the delete half is already committed
					res.Changed = true
					lookup, err = c.loadResolver(ctx)
					if err != nil {
						return res, err
					}
					continue
				}
			case activity.TypeDelete:
				if err = c.processDelete(ctx, act); err != nil {
					slog.Warn("Skipping activity", "activity", act.ID,
						"error", err)
					continue
				}
				lookup, err = c.loadResolver(ctx)
				if err != nil {
					return res, err
				}
			}
			res.Changed = true
		}

		if page.Prev == nil || page.Prev.URI == "" {
			break
		}
		if pages >= c.cfg.MaxFeedPages {
			slog.Warn("Page limit reached, aborting feed walk",
				"source", src, "pages", pages)
			break
		}
		var prev activity.Page
		if err = c.fetcher.GetJSON(ctx, page.Prev.URI, &prev); err != nil {
			slog.Warn("Cannot access activity stream page, aborting feed walk",
				"source", src, "error", err)
			break
		}
		page = prev
	}

	if err = c.appendCrawlLog(ctx, res.NewCanvases); err != nil {
		return res, err
	}

	if res.Changed {
		slog.Info("Generating facet list")
		if err = c.facets.Build(ctx); err != nil {
			return res, err
		}
		if c.bots != nil {
			if err = c.bots.DispatchJobs(ctx); err != nil {
				slog.Warn("Cannot dispatch enhancement jobs", "error", err)
			}
		}
	} else {
		slog.Info("No changes, skipping generation of facet list")
	}

	slog.Info(
		"Source crawled",
		"source", src,
		"newCanvases", humanize.Comma(int64(res.NewCanvases)),
	)
	return res, nil
}

func (c *crawlio) loadParentMap() (*parentmap.ParentMap, error) {
	res := parentmap.New()
	blob, err := c.store.GetValue(parentMapKey)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return res, nil
	}
	if err = c.enc.Decode(blob, res); err != nil {
		slog.Error("Cannot decode parent map", "error", err)
		return nil, err
	}
	res.Normalize()
	return res, nil
}

func (c *crawlio) persistParentMap() error {
	blob, err := c.enc.Encode(c.pm)
	if err != nil {
		slog.Error("Cannot encode parent map", "error", err)
		return err
	}
	return c.store.SetValue(parentMapKey, blob)
}
