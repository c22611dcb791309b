package str

import "strings"

// ShortTitle truncates a title to 45 characters if necesary.
func ShortTitle(title string) string {
	if len(title) < 45 {
		return title
	}
	return title[0:41] + "..."
}

// SplitCanvasURI splits a canvas URI into its base ID and fragment.
// A canvas URI always contains exactly one '#'; an empty fragment is
// represented by a trailing '#'.
func SplitCanvasURI(uri string) (string, string) {
	parts := strings.SplitN(uri, "#", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

// CanvasURI assembles a canonical canvas URI from a base ID and a
// fragment. The '#' separator is always present, even for an empty
// fragment.
func CanvasURI(base, fragment string) string {
	return base + "#" + fragment
}

// XYWHFragment returns the media fragment of a canvas URI if it is an
// xywh region, or an empty string otherwise.
func XYWHFragment(uri string) string {
	parts := strings.SplitN(uri, "#xywh=", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}
