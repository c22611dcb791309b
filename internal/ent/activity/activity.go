package activity

import (
	"encoding/json"
	"time"

	"github.com/iiifsearch/canvasindexer/internal/ent/fetch"
)

// Activity types processed by the crawler.
const (
	TypeCreate = "Create"
	TypeUpdate = "Update"
	TypeDelete = "Delete"
)

// CurationType is the object type of curation documents in the feed.
// Activities over any other object type are skipped unconditionally.
const CurationType = "cr:Curation"

// Collection is the root of a paginated Activity Stream.
type Collection struct {
	ID   string    `json:"id"`
	Last fetch.Ref `json:"last"`
}

// Page is one page of an Activity Stream. Pages link backwards in time
// through Prev; the collection's Last link points at the most recent
// page.
type Page struct {
	ID           string     `json:"id"`
	OrderedItems []Activity `json:"orderedItems"`
	Prev         *fetch.Ref `json:"prev"`
}

// Activity is one Create/Update/Delete event over an external document.
type Activity struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	EndTime string `json:"endTime"`
	Object  Object `json:"object"`
}

// End parses the activity's endTime. The feed serves ISO-8601 strings,
// with or without a zone designator.
func (a Activity) End() (time.Time, error) {
	return ParseTime(a.EndTime)
}

// ParseTime parses an ISO-8601 timestamp as used by the feed and the
// crawl log.
func ParseTime(s string) (time.Time, error) {
	var err error
	var res time.Time
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	}
	for _, l := range layouts {
		res, err = time.Parse(l, s)
		if err == nil {
			return res, nil
		}
	}
	return res, err
}

// Object is an activity's object: a type tag plus either an inline
// document or a reference to one. Only the type and the reference URI
// are consumed here; inline content is re-dereferenced by URI.
type Object struct {
	Type string
	URI  string
}

func (o *Object) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type string `json:"@type"`
		ID   string `json:"id"`
		AtID string `json:"@id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Type = raw.Type
	o.URI = raw.ID
	if o.URI == "" {
		o.URI = raw.AtID
	}
	return nil
}

// ShouldProcess reports whether an activity is due for processing.
// An activity is processed only if it is strictly newer than the last
// crawl, its object is a curation, and no newer activity for the same
// object was already applied in this run. The feed is walked from the
// most recent page backwards, so the first sighting of an object within
// a run is its most recent activity; any earlier sighting is stale.
func ShouldProcess(
	a Activity,
	lastCrawl time.Time,
	seen map[string]bool,
) bool {
	if a.Object.Type != CurationType {
		return false
	}
	if seen[a.Object.URI] {
		return false
	}
	end, err := a.End()
	if err != nil {
		return false
	}
	return end.After(lastCrawl)
}
