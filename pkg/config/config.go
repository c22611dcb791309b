package config

import (
	"os"
	"path/filepath"
)

// Config is a struct that holds configuration parameters for the package.
type Config struct {
	// CacheDir is a directory for the persisted parent map key-value store.
	CacheDir string

	// ParentMapDir is a directory to keep the canvas parent map store.
	ParentMapDir string

	// ASSources is a list of Activity Stream collection URLs to crawl.
	ASSources []string

	// BotURLs is a list of metadata enhancement bot endpoints.
	BotURLs []string

	// CallbackURL is the URL enhancement bots post their results back to.
	CallbackURL string

	// PgHost is a host name for PostgreSQL.
	PgHost string

	// PgUser is a user name for PostgreSQL.
	PgUser string

	// PgPass is a password for PostgreSQL.
	PgPass string

	// PgDB is a database name for PostgreSQL.
	PgDB string

	// ThumbnailWidth is the requested width of search result thumbnails.
	ThumbnailWidth int

	// ThumbnailHeight is the requested height of search result thumbnails.
	ThumbnailHeight int

	// MaxFeedPages caps how many activity feed pages one crawl run visits.
	// It guards against malformed or cyclic 'prev' link chains.
	MaxFeedPages int

	// FetchRetries is the number of retries for dereferencing external
	// documents before degrading to an empty sentinel.
	FetchRetries int

	// KeepOrphanCanvases disables deletion of canvases that lost their last
	// referencing curation.
	KeepOrphanCanvases bool

	// FacetLabelSortTop lists facet labels pinned to the front of the facet
	// summary, in the given order.
	FacetLabelSortTop []string

	// FacetLabelSortBottom lists facet labels pinned to the back of the
	// facet summary, in the given order.
	FacetLabelSortBottom []string

	// FacetValueSortAlphanum lists facet labels whose values are sorted
	// alphanumerically instead of by descending frequency.
	FacetValueSortAlphanum []string

	// FacetValueSortTop pins, per facet label, values to the front of that
	// facet's value list.
	FacetValueSortTop map[string][]string

	// FacetValueSortBottom pins, per facet label, values to the back of
	// that facet's value list.
	FacetValueSortBottom map[string][]string
}

// Option type allows to change settings for Config.
type Option func(*Config)

// OptCacheDir sets a directory for the parent map store.
func OptCacheDir(d string) Option {
	return func(cfg *Config) {
		cfg.CacheDir = d
		cfg.ParentMapDir = filepath.Join(d, "parentmap")
	}
}

// OptASSources sets the Activity Stream sources to crawl.
func OptASSources(srcs []string) Option {
	return func(cfg *Config) {
		cfg.ASSources = srcs
	}
}

// OptBotURLs sets the enhancement bot endpoints.
func OptBotURLs(urls []string) Option {
	return func(cfg *Config) {
		cfg.BotURLs = urls
	}
}

// OptCallbackURL sets the callback URL sent with enhancement jobs.
func OptCallbackURL(u string) Option {
	return func(cfg *Config) {
		cfg.CallbackURL = u
	}
}

// OptPgHost sets host name for PostgreSQL
func OptPgHost(h string) Option {
	return func(cfg *Config) {
		cfg.PgHost = h
	}
}

// OptPgUser sets user for PostgreSQL
func OptPgUser(u string) Option {
	return func(cfg *Config) {
		cfg.PgUser = u
	}
}

// OptPgPass sets password for PostgreSQL
func OptPgPass(p string) Option {
	return func(cfg *Config) {
		cfg.PgPass = p
	}
}

// OptPgDB sets database name for PostgreSQL
func OptPgDB(d string) Option {
	return func(cfg *Config) {
		cfg.PgDB = d
	}
}

// OptThumbnailWidth sets the requested thumbnail width.
func OptThumbnailWidth(w int) Option {
	return func(cfg *Config) {
		cfg.ThumbnailWidth = w
	}
}

// OptThumbnailHeight sets the requested thumbnail height.
func OptThumbnailHeight(h int) Option {
	return func(cfg *Config) {
		cfg.ThumbnailHeight = h
	}
}

// OptMaxFeedPages sets the page cap for one crawl run.
func OptMaxFeedPages(n int) Option {
	return func(cfg *Config) {
		cfg.MaxFeedPages = n
	}
}

// OptFetchRetries sets the retry count for external dereferences.
func OptFetchRetries(n int) Option {
	return func(cfg *Config) {
		cfg.FetchRetries = n
	}
}

// OptKeepOrphanCanvases toggles orphan canvas reclamation off.
func OptKeepOrphanCanvases(keep bool) Option {
	return func(cfg *Config) {
		cfg.KeepOrphanCanvases = keep
	}
}

// OptFacetLabelSortTop sets facet labels pinned to the front.
func OptFacetLabelSortTop(labels []string) Option {
	return func(cfg *Config) {
		cfg.FacetLabelSortTop = labels
	}
}

// OptFacetLabelSortBottom sets facet labels pinned to the back.
func OptFacetLabelSortBottom(labels []string) Option {
	return func(cfg *Config) {
		cfg.FacetLabelSortBottom = labels
	}
}

// OptFacetValueSortAlphanum sets labels with alphanumeric value sort.
func OptFacetValueSortAlphanum(labels []string) Option {
	return func(cfg *Config) {
		cfg.FacetValueSortAlphanum = labels
	}
}

// OptFacetValueSortTop sets per-label value pinning for the front.
func OptFacetValueSortTop(m map[string][]string) Option {
	return func(cfg *Config) {
		cfg.FacetValueSortTop = m
	}
}

// OptFacetValueSortBottom sets per-label value pinning for the back.
func OptFacetValueSortBottom(m map[string][]string) Option {
	return func(cfg *Config) {
		cfg.FacetValueSortBottom = m
	}
}

func New(opts ...Option) Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	cacheDir = filepath.Join(cacheDir, "canvasindexer")

	res := Config{
		CacheDir:        cacheDir,
		ParentMapDir:    filepath.Join(cacheDir, "parentmap"),
		PgHost:          "0.0.0.0",
		PgUser:          "postgres",
		PgPass:          "postgres",
		PgDB:            "canvasindexer",
		ThumbnailWidth:  200,
		ThumbnailHeight: 200,
		MaxFeedPages:    1000,
		FetchRetries:    5,
	}

	for _, opt := range opts {
		opt(&res)
	}

	return res
}
