package doc

import (
	"sort"
	"strings"

	"github.com/gnames/gnfmt"
)

// QualifierTuple is the canonical identity of one metadata entry: an
// optional qualifier (facet label) and a term value. Callers must skip
// tuples with an empty Term before persisting anything.
type QualifierTuple struct {
	Qualifier string
	Term      string
}

// metaKind tags the recognized shapes of a raw metadata entry.
type metaKind int

const (
	metaString metaKind = iota
	metaPair
	metaLabelValue
	metaSingleKey
	metaUnparsed
)

// classify maps a decoded JSON value to one of the metadata variants.
func classify(raw any) metaKind {
	switch v := raw.(type) {
	case string:
		return metaString
	case []any:
		if len(v) >= 2 {
			_, lok := v[0].(string)
			_, vok := v[1].(string)
			if lok && vok {
				return metaPair
			}
		}
		return metaUnparsed
	case map[string]any:
		label, hasLabel := v["label"]
		value, hasValue := v["value"]
		if hasLabel && hasValue && value != nil {
			if _, ok := label.(string); ok {
				return metaLabelValue
			}
		}
		if len(v) > 0 {
			return metaSingleKey
		}
		return metaUnparsed
	}
	return metaUnparsed
}

// BuildQualifierTuple normalizes the heterogeneous metadata shapes the
// feed serves into a (qualifier, term) pair. Unrecognized shapes still
// yield an identity through the unparsed fallback rather than being
// dropped silently.
func BuildQualifierTuple(raw any) QualifierTuple {
	switch classify(raw) {
	case metaString:
		return QualifierTuple{Term: strings.TrimSpace(raw.(string))}
	case metaPair:
		v := raw.([]any)
		return QualifierTuple{
			Qualifier: strings.TrimSpace(v[0].(string)),
			Term:      strings.TrimSpace(v[1].(string)),
		}
	case metaLabelValue:
		m := raw.(map[string]any)
		label := strings.TrimSpace(m["label"].(string))
		switch value := m["value"].(type) {
		case string:
			return QualifierTuple{
				Qualifier: label,
				Term:      strings.TrimSpace(value),
			}
		case []any:
			parts := make([]string, len(value))
			for i := range value {
				parts[i] = stringRepr(value[i])
			}
			return QualifierTuple{
				Qualifier: label,
				Term:      strings.Join(parts, ", "),
			}
		default:
			return QualifierTuple{
				Qualifier: label,
				Term:      stringRepr(value),
			}
		}
	case metaSingleKey:
		m := raw.(map[string]any)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		// map iteration order is random, sort for a stable qualifier
		sort.Strings(keys)
		return QualifierTuple{
			Qualifier: keys[0],
			Term:      stringRepr(m[keys[0]]),
		}
	}
	return QualifierTuple{Term: stringRepr(raw)}
}

// stringRepr renders a decoded JSON value as a string. Strings pass
// through unchanged, everything else is JSON-encoded.
func stringRepr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	enc := gnfmt.GNjson{}
	data, err := enc.Encode(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// MetaActor extracts the actor class of a metadata entry from its
// 'agent' field, defaulting to unknown.
func MetaActor(raw any) string {
	if m, ok := raw.(map[string]any); ok {
		if a, ok := m["agent"].(string); ok && a != "" {
			return a
		}
	}
	return "unknown"
}

// MergeMetadata merges two metadata arrays: entries that are not
// objects or have an empty label or value are dropped, duplicates by
// (label, value) keep only their first occurrence, and the result is
// stably partitioned into pinned top labels, an untouched middle, and
// pinned bottom labels.
func MergeMetadata(
	oldMeta, newMeta []any,
	topLabels, bottomLabels []string,
) []any {
	var cleaned []any
	seen := make(map[string]bool)
	for _, meta := range append(append([]any{}, oldMeta...), newMeta...) {
		m, ok := meta.(map[string]any)
		if !ok {
			continue
		}
		label := m["label"]
		value := m["value"]
		if !truthy(label) || !truthy(value) {
			continue
		}
		key := stringRepr(label) + "\x1f" + stringRepr(value)
		if seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, m)
	}

	var topBin, centerBin, bottomBin []any
	for _, meta := range cleaned {
		label, _ := meta.(map[string]any)["label"].(string)
		switch {
		case containsLabel(topLabels, label):
			topBin = append(topBin, meta)
		case containsLabel(bottomLabels, label):
			bottomBin = append(bottomBin, meta)
		default:
			centerBin = append(centerBin, meta)
		}
	}
	res := make([]any, 0, len(cleaned))
	res = append(res, topBin...)
	res = append(res, centerBin...)
	res = append(res, bottomBin...)
	return res
}

// truthy mirrors the emptiness rules used for metadata cleaning: nil,
// empty strings, empty arrays and empty objects do not count.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	case bool:
		return x
	case float64:
		return x != 0
	}
	return true
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
