package doc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iiifsearch/canvasindexer/internal/ent/fetch"
	"github.com/iiifsearch/canvasindexer/internal/ent/iiif"
	"github.com/iiifsearch/canvasindexer/internal/str"
)

// CanvasDoc is the pre-rendered search result document cached for one
// canvas excerpt. Field order matches the served JSON.
type CanvasDoc struct {
	ManifestURL       string `json:"manifestUrl"`
	ManifestLabel     string `json:"manifestLabel"`
	Canvas            string `json:"canvas,omitempty"`
	CanvasID          string `json:"canvasId"`
	CanvasCursorIndex any    `json:"canvasCursorIndex"`
	CanvasLabel       string `json:"canvasLabel"`
	CanvasThumbnail   string `json:"canvasThumbnail"`
	CanvasIndex       int    `json:"canvasIndex"`
	Fragment          string `json:"fragment"`
	Metadata          []any  `json:"metadata,omitempty"`
}

// URI returns the canonical canvas URI of the document.
func (d CanvasDoc) URI() string {
	return str.CanvasURI(d.CanvasID, d.Fragment)
}

// CanvasHit locates a hit inside a curation for canvas metadata
// matches.
type CanvasHit struct {
	CanvasID            string `json:"canvasId"`
	Fragment            string `json:"fragment"`
	CurationCanvasIndex int    `json:"curationCanvasIndex"`
}

// CurationDoc is the pre-rendered search result document cached for one
// curation materialization. Exactly one of CurationHit and CanvasHit is
// set; the other is serialized as null.
type CurationDoc struct {
	CurationURL       string     `json:"curationUrl"`
	CurationLabel     string     `json:"curationLabel"`
	CurationThumbnail *string    `json:"curationThumbnail"`
	TotalImages       int        `json:"totalImages"`
	CrawledAt         string     `json:"crawledAt"`
	CurationHit       *bool      `json:"curationHit"`
	CanvasHit         *CanvasHit `json:"canvasHit"`
}

// UTCNowISO returns the current UTC time as an ISO-8601 string, the
// format shared by the feed's endTime values and the crawl log.
func UTCNowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000")
}

// BuildCanvasDoc locates the manifest canvas referenced by a curation
// canvas excerpt and assembles its search result document. The match is
// on the exact base ID: substring matching would cross-match IDs where
// one is a prefix of another. It returns false when the manifest has no
// matching canvas.
func BuildCanvasDoc(
	ctx context.Context,
	f fetch.Dereferencer,
	man iiif.Manifest,
	curCan iiif.CurationCanvas,
	width, height int,
) (CanvasDoc, bool) {
	var res CanvasDoc
	base, fragment := str.SplitCanvasURI(curCan.ID)

	for _, seq := range man.Sequences {
		for i, manCan := range seq.Canvases {
			if manCan.ID != base {
				continue
			}
			res.ManifestURL = man.ID
			res.ManifestLabel = man.Label

			urlBase := imageURLBase(manCan)
			infoURL := urlBase + "/info.json"
			res.Canvas = infoURL

			var info iiif.ImageInfo
			if err := f.GetJSON(ctx, infoURL, &info); err != nil {
				// degrade to an empty info object
				info = iiif.ImageInfo{}
			}
			imgURL := fmt.Sprintf(
				"%s/full/full/0/%s.%s",
				info.ID, pickQuality(info), pickFormat(info),
			)

			res.CanvasID = manCan.ID
			res.CanvasCursorIndex = manCan.CursorIndex
			res.CanvasLabel = manCan.Label
			lvl := ComplianceLevel(info.Profile)
			res.CanvasThumbnail = ThumbnailURL(
				imgURL, curCan.ID, width, height, lvl, manCan,
			)
			res.CanvasIndex = i + 1
			res.Fragment = fragment
			if len(curCan.Metadata) > 0 {
				res.Metadata = curCan.Metadata
			}
			return res, true
		}
	}
	slog.Warn(
		"No matching canvas in manifest",
		"manifest", man.ID,
		"canvas", str.ShortTitle(curCan.ID),
	)
	return res, false
}

// imageURLBase derives the Image API base URL of a canvas: the image
// service's @id when present, otherwise the image resource URL with its
// last 4 path segments ({region}/{size}/{rotation}/{quality}.{format})
// chopped off.
func imageURLBase(manCan iiif.ManifestCanvas) string {
	if len(manCan.Images) == 0 {
		return ""
	}
	resource := manCan.Images[0].Resource
	if resource.Service != nil && resource.Service.ID != "" {
		return resource.Service.ID
	}
	parts := strings.Split(resource.ID, "/")
	if len(parts) <= 4 {
		return resource.ID
	}
	return strings.Join(parts[:len(parts)-4], "/")
}

// BuildCurationDoc assembles the search result document for a curation
// materialization. With a canvas document it represents a canvas
// metadata hit; without one it represents a curation top level metadata
// hit whose thumbnail is enhanced retroactively.
func BuildCurationDoc(
	cur iiif.Curation,
	actType, actEndTime string,
	canvasDoc *CanvasDoc,
	curCanIdx int,
) CurationDoc {
	res := CurationDoc{
		CurationURL:   cur.ID,
		CurationLabel: cur.Label,
	}
	if canvasDoc != nil {
		thumb := canvasDoc.CanvasThumbnail
		res.CurationThumbnail = &thumb
	}
	var numCanvases int
	for _, ran := range cur.Selections {
		numCanvases += len(ran.Members) + len(ran.Canvases)
	}
	res.TotalImages = numCanvases
	if actType == "Update" {
		res.CrawledAt = actEndTime
	} else {
		res.CrawledAt = UTCNowISO()
	}
	if canvasDoc != nil {
		res.CanvasHit = &CanvasHit{
			CanvasID:            canvasDoc.CanvasID,
			Fragment:            canvasDoc.Fragment,
			CurationCanvasIndex: curCanIdx + 1,
		}
	} else {
		hit := true
		res.CurationHit = &hit
	}
	return res
}

// EnhanceTopMetaCurationDoc retroactively adds the thumbnail to a
// curation top level metadata search result.
func EnhanceTopMetaCurationDoc(curDoc *CurationDoc, canvasDoc CanvasDoc) {
	thumb := canvasDoc.CanvasThumbnail
	curDoc.CurationThumbnail = &thumb
}
