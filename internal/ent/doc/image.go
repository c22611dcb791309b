package doc

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/iiifsearch/canvasindexer/internal/ent/iiif"
	"github.com/iiifsearch/canvasindexer/internal/str"
)

var (
	pattIIIF = regexp.MustCompile(`level([0-2])\.json$`)
	pattStan = regexp.MustCompile(`#level([0-2])$`)
)

// ComplianceLevel tries to figure out the IIIF Image API compliance
// level from the profile value of an info.json. It returns -1 when the
// level cannot be determined.
func ComplianceLevel(profile any) int {
	lvl := -1
	switch p := profile.(type) {
	case string:
		lvl = levelFromString(p)
	case []any:
		for _, x := range p {
			s, ok := x.(string)
			if !ok {
				continue
			}
			if found := levelFromString(s); found != -1 {
				lvl = found
				break
			}
		}
	}
	if lvl == -1 {
		slog.Warn("Could not find compliance level in info.json")
	}
	return lvl
}

func levelFromString(s string) int {
	var m []string
	if strings.Contains(s, "http://iiif.io/api/image/2/") {
		m = pattIIIF.FindStringSubmatch(s)
	} else if strings.Contains(s, "http://library.stanford.edu/iiif/image-api/") {
		m = pattStan.FindStringSubmatch(s)
	}
	if m != nil {
		return int(m[1][0] - '0')
	}
	return -1
}

// ThumbnailURL creates a URL for a thumbnail image by substituting the
// canvas fragment and a size string into the image URL's 'full/full'
// segment. The size string depends on the compliance level; level 0
// providers that carry an explicit thumbnail get it back verbatim.
func ThumbnailURL(
	imgURI, canvasURI string,
	width, height, complianceLvl int,
	manCan iiif.ManifestCanvas,
) string {
	fragment := "full"
	if xywh := str.XYWHFragment(canvasURI); xywh != "" {
		fragment = xywh
	}
	var size string
	switch {
	case complianceLvl >= 2:
		size = fmt.Sprintf("!%d,%d", width, height)
	case complianceLvl == 1:
		size = fmt.Sprintf("%d,", width)
	case complianceLvl == 0:
		if manCan.Thumbnail.URI != "" {
			// special case that e.g. Getty uses
			return manCan.Thumbnail.URI
		}
		size = "full"
	default:
		// compliance level unknown
		size = fmt.Sprintf("!%d,%d", width, height)
	}
	return strings.ReplaceAll(imgURI, "full/full", fragment+"/"+size)
}

// pickQuality selects the image quality to request, preferring
// default, then native, then the first advertised quality.
func pickQuality(info iiif.ImageInfo) string {
	if containsString(info.Qualities, "default") {
		return "default"
	}
	if containsString(info.Qualities, "native") {
		return "native"
	}
	if len(info.Qualities) > 0 {
		if s, ok := info.Qualities[0].(string); ok {
			return s
		}
	}
	return "default"
}

func containsString(vals []any, want string) bool {
	for _, v := range vals {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

// pickFormat selects the image format to request, preferring jpg, then
// the first advertised format.
func pickFormat(info iiif.ImageInfo) string {
	for _, f := range info.Formats {
		if s, ok := f.(string); ok && s == "jpg" {
			return "jpg"
		}
	}
	if len(info.Formats) > 0 {
		if s, ok := info.Formats[0].(string); ok {
			return s
		}
	}
	return "jpg"
}
