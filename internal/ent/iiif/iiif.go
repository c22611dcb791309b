package iiif

import "github.com/iiifsearch/canvasindexer/internal/ent/fetch"

// Curation is a IIIF Curation document: ranges of canvas excerpts with
// metadata, as served by the activity feed's objects.
type Curation struct {
	ID         string  `json:"@id"`
	Label      string  `json:"label"`
	Selections []Range `json:"selections"`
	Metadata   []any   `json:"metadata"`
}

// Range is one selection inside a curation. Canvas excerpts appear
// either under 'members' or under 'canvases'; the referenced manifest
// is linked through 'within'.
type Range struct {
	Within   fetch.Ref        `json:"within"`
	Members  []CurationCanvas `json:"members"`
	Canvases []CurationCanvas `json:"canvases"`
}

// CurationCanvas is a canvas excerpt reference inside a curation range.
// Its ID may carry an xywh fragment.
type CurationCanvas struct {
	ID       string `json:"@id"`
	Label    string `json:"label"`
	Metadata []any  `json:"metadata"`
}

// All returns the range's canvases, members first, preserving order.
func (r Range) All() []CurationCanvas {
	res := make([]CurationCanvas, 0, len(r.Members)+len(r.Canvases))
	res = append(res, r.Members...)
	res = append(res, r.Canvases...)
	return res
}

// Manifest is a IIIF Presentation 2.x manifest, reduced to the fields
// the document builder consumes.
type Manifest struct {
	ID        string     `json:"@id"`
	Label     string     `json:"label"`
	Sequences []Sequence `json:"sequences"`
}

// Sequence holds a manifest's canvases.
type Sequence struct {
	Canvases []ManifestCanvas `json:"canvases"`
}

// ManifestCanvas is one canvas of a manifest.
type ManifestCanvas struct {
	ID    string `json:"@id"`
	Label string `json:"label"`

	// CursorIndex is a vendor extension carried through verbatim.
	CursorIndex any `json:"cursorIndex"`

	// Thumbnail is used verbatim by non-conformant level 0 providers.
	Thumbnail fetch.Ref `json:"thumbnail"`

	Images []Image `json:"images"`
}

// Image is an image annotation on a canvas.
type Image struct {
	Resource Resource `json:"resource"`
}

// Resource is an image resource, optionally carrying a IIIF Image API
// service block.
type Resource struct {
	ID      string   `json:"@id"`
	Service *Service `json:"service"`
}

// Service is a IIIF Image API service reference.
type Service struct {
	ID string `json:"@id"`
}

// ImageInfo is an Image API 2.x info.json, reduced to the fields the
// document builder consumes. A failed info.json fetch degrades to the
// zero value.
type ImageInfo struct {
	ID        string `json:"@id"`
	Profile   any    `json:"profile"`
	Qualities []any  `json:"qualities"`
	Formats   []any  `json:"formats"`
}
