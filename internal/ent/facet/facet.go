package facet

import "sort"

// AssocRow is one canvas-metadata term association as loaded from
// storage. Only associations with metadata type 'canvas' feed the facet
// summary.
type AssocRow struct {
	Qualifier string
	Term      string
	Actor     string
}

// Value is one facet value with its occurrence count for one agent
// class.
type Value struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Agent string `json:"agent,omitempty"`
}

// Facet is one facet label with its observed value distribution.
type Facet struct {
	Label  string  `json:"label"`
	Values []Value `json:"value"`
}

// Summary is the pre-built reply for facet requests, regenerated
// wholesale after every crawl run with changes.
type Summary struct {
	Facets []Facet `json:"facets"`
}

// SortConfig controls value and facet ordering of the summary.
type SortConfig struct {
	// LabelSortTop and LabelSortBottom pin whole facets to the front or
	// back; facets not named keep their insertion order in between.
	LabelSortTop    []string
	LabelSortBottom []string

	// ValueSortAlphanum lists facet labels whose values sort
	// alphanumerically instead of by descending frequency.
	ValueSortAlphanum []string

	// ValueSortTop and ValueSortBottom pin values per facet label, on
	// top of the frequency or alphanumeric sort.
	ValueSortTop    map[string][]string
	ValueSortBottom map[string][]string
}

// BuildSummary derives the facet summary from the current association
// state. Counts are split by actor class; the search API treats
// metadata of unknown provenance as human generated, so unknown actors
// fold into the human count.
func BuildSummary(rows []AssocRow, cfg SortConfig) Summary {
	type counts struct {
		human   int
		machine int
	}
	byLabel := make(map[string]map[string]*counts)
	var labelOrder []string
	valueOrder := make(map[string][]string)

	for _, row := range rows {
		vals, ok := byLabel[row.Qualifier]
		if !ok {
			vals = make(map[string]*counts)
			byLabel[row.Qualifier] = vals
			labelOrder = append(labelOrder, row.Qualifier)
		}
		c, ok := vals[row.Term]
		if !ok {
			c = &counts{}
			vals[row.Term] = c
			valueOrder[row.Qualifier] = append(valueOrder[row.Qualifier], row.Term)
		}
		if row.Actor == "machine" {
			c.machine++
		} else {
			c.human++
		}
	}

	facets := make([]Facet, 0, len(labelOrder))
	for _, label := range labelOrder {
		facet := Facet{Label: label}
		for _, val := range valueOrder[label] {
			c := byLabel[label][val]
			if c.human > 0 {
				facet.Values = append(facet.Values, Value{
					Label: val, Value: c.human, Agent: "human",
				})
			}
			if c.machine > 0 {
				facet.Values = append(facet.Values, Value{
					Label: val, Value: c.machine, Agent: "machine",
				})
			}
		}
		sortValues(&facet, cfg)
		facets = append(facets, facet)
	}

	return Summary{Facets: orderFacets(facets, cfg)}
}

func sortValues(facet *Facet, cfg SortConfig) {
	if containsString(cfg.ValueSortAlphanum, facet.Label) {
		sort.SliceStable(facet.Values, func(i, j int) bool {
			return facet.Values[i].Label < facet.Values[j].Label
		})
	} else {
		// default sort by descending frequency
		sort.SliceStable(facet.Values, func(i, j int) bool {
			return facet.Values[i].Value > facet.Values[j].Value
		})
	}

	top := cfg.ValueSortTop[facet.Label]
	bottom := cfg.ValueSortBottom[facet.Label]
	if len(top) == 0 && len(bottom) == 0 {
		return
	}
	facet.Values = pinValues(facet.Values, top, bottom)
}

// pinValues reorders values so that those named in top come first in
// the given order, those named in bottom come last in the given order,
// and everything else keeps its position in between.
func pinValues(values []Value, top, bottom []string) []Value {
	res := make([]Value, 0, len(values))
	for _, l := range top {
		for _, v := range values {
			if v.Label == l {
				res = append(res, v)
			}
		}
	}
	for _, v := range values {
		if !containsString(top, v.Label) && !containsString(bottom, v.Label) {
			res = append(res, v)
		}
	}
	for _, l := range bottom {
		for _, v := range values {
			if v.Label == l {
				res = append(res, v)
			}
		}
	}
	return res
}

// orderFacets applies the global facet pinning rule.
func orderFacets(facets []Facet, cfg SortConfig) []Facet {
	res := make([]Facet, 0, len(facets))
	for _, l := range cfg.LabelSortTop {
		for _, f := range facets {
			if f.Label == l {
				res = append(res, f)
			}
		}
	}
	for _, f := range facets {
		if !containsString(cfg.LabelSortTop, f.Label) &&
			!containsString(cfg.LabelSortBottom, f.Label) {
			res = append(res, f)
		}
	}
	for _, l := range cfg.LabelSortBottom {
		for _, f := range facets {
			if f.Label == l {
				res = append(res, f)
			}
		}
	}
	return res
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
