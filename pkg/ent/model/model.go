package model

// Term is one facet label/value combination extracted from curation or
// canvas metadata. Terms are created lazily on first sighting and are
// never deleted, even when their last association is removed.
type Term struct {
	// UUID v5 generated from the (qualifier, term) pair.
	ID string `gorm:"type:uuid;primary_key;auto_increment:false"`

	// Term is the value part of the pair.
	Term string `gorm:"type:varchar(255);not null;unique_index:idx_term_qualifier"`

	// Qualifier is the label part of the pair. May be empty.
	Qualifier string `gorm:"type:varchar(255);unique_index:idx_term_qualifier"`
}

// Canvas is a region of a IIIF page. Its URI is the base canvas ID and
// the fragment joined by '#'; the separator is present even when the
// fragment is empty.
type Canvas struct {
	// UUID v5 generated from the canvas URI.
	ID string `gorm:"type:uuid;primary_key;auto_increment:false"`

	// CanvasURI is the base ID + '#' + fragment.
	CanvasURI string `gorm:"type:varchar(2048);unique_index"`

	// JSONString caches the pre-rendered search result document. Its
	// metadata array grows by merge as later sightings arrive.
	JSONString string `gorm:"type:text"`
}

// Curation is a search result document for one source curation in one
// term context. The same source curation is stored once per associated
// term because thumbnail and hit highlighting differ per term.
type Curation struct {
	// UUID v5 generated from the (url, term, metadata type) key.
	ID string `gorm:"type:uuid;primary_key;auto_increment:false"`

	// CurationURL is the source curation's URL.
	CurationURL string `gorm:"type:varchar(2048);index;unique_index:idx_curation_key"`

	// Term is the term value this materialization belongs to.
	Term string `gorm:"type:varchar(255);unique_index:idx_curation_key"`

	// MetadataType distinguishes curation top level metadata hits from
	// canvas metadata hits. One of 'curation', 'canvas'.
	MetadataType string `gorm:"type:varchar(255);unique_index:idx_curation_key"`

	// JSONString caches the pre-rendered search result document.
	JSONString string `gorm:"type:text"`
}

// TermCanvasAssoc links a term to a canvas.
type TermCanvasAssoc struct {
	TermID   string `gorm:"type:uuid;primary_key;auto_increment:false"`
	CanvasID string `gorm:"type:uuid;primary_key;auto_increment:false"`

	// MetadataType records whether the term came from curation top level
	// or canvas metadata.
	MetadataType string `gorm:"type:varchar(255)"`

	// Actor is one of 'human', 'machine', 'unknown'.
	Actor string `gorm:"type:varchar(255)"`
}

// TermCurationAssoc links a term to a curation materialization.
type TermCurationAssoc struct {
	TermID     string `gorm:"type:uuid;primary_key;auto_increment:false"`
	CurationID string `gorm:"type:uuid;primary_key;auto_increment:false"`

	// MetadataType records whether the term came from curation top level
	// or canvas metadata.
	MetadataType string `gorm:"type:varchar(255)"`

	// Actor is one of 'human', 'machine', 'unknown'.
	Actor string `gorm:"type:varchar(255)"`
}

// CrawlLog records one crawl run. The datetime of the most recent row is
// the cutoff for activity filtering in the next run.
type CrawlLog struct {
	LogID int `gorm:"primary_key;auto_increment"`

	// Datetime is stored as an ISO-8601 string to align with the feed's
	// endTime values.
	Datetime string `gorm:"type:text"`

	// NewCanvases is the number of canvases first seen during the run.
	NewCanvases int
}

// FacetList holds the single pre-built facet summary blob served to the
// search API. It is rewritten wholesale after every run with changes.
type FacetList struct {
	ID         int    `gorm:"primary_key;auto_increment"`
	JSONString string `gorm:"type:text"`
}

// BotState tracks the outstanding enhancement job per bot so a second
// job is never dispatched while one is in flight.
type BotState struct {
	// BotURL identifies the bot endpoint.
	BotURL string `gorm:"type:varchar(2048);primary_key;auto_increment:false"`

	// WaitingJobID is the id of the outstanding job, or -1 when none.
	WaitingJobID int `gorm:"not null;default:-1"`

	// FinishedCanvases is a JSON array of canvas URIs already sent to the
	// bot.
	FinishedCanvases string `gorm:"type:text"`
}
