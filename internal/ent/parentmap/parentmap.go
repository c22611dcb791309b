package parentmap

// ParentMap answers which curations reference a canvas and which
// canvases a curation references. Upward and Downward are mutual
// inverses; every mutation updates both sides so the invariant survives
// persistence of the whole aggregate between crawl runs.
type ParentMap struct {
	// Upward maps a canvas URI to the curation URLs referencing it.
	Upward map[string][]string `json:"upward"`

	// Downward maps a curation URL to the canvas URIs it references.
	Downward map[string][]string `json:"downward"`
}

// New returns an empty ParentMap.
func New() *ParentMap {
	return &ParentMap{
		Upward:   make(map[string][]string),
		Downward: make(map[string][]string),
	}
}

// Normalize replaces nil maps after decoding a persisted blob.
func (m *ParentMap) Normalize() {
	if m.Upward == nil {
		m.Upward = make(map[string][]string)
	}
	if m.Downward == nil {
		m.Downward = make(map[string][]string)
	}
}

// AddEdge records that curationURL references canvasURI. Both
// directions are deduplicated.
func (m *ParentMap) AddEdge(canvasURI, curationURL string) {
	m.Upward[canvasURI] = appendUniq(m.Upward[canvasURI], curationURL)
	m.Downward[curationURL] = appendUniq(m.Downward[curationURL], canvasURI)
}

// Curations returns the curation URLs referencing a canvas.
func (m *ParentMap) Curations(canvasURI string) []string {
	return m.Upward[canvasURI]
}

// Canvases returns the canvas URIs referenced by a curation.
func (m *ParentMap) Canvases(curationURL string) []string {
	return m.Downward[curationURL]
}

// RemoveCuration removes all edges of a curation from both sides and
// returns the canvas URIs that lost their last referencing curation.
// Those orphans are removed from the upward index as well.
func (m *ParentMap) RemoveCuration(curationURL string) []string {
	var orphans []string
	for _, canvasURI := range m.Downward[curationURL] {
		kept := m.Upward[canvasURI][:0]
		for _, cu := range m.Upward[canvasURI] {
			if cu != curationURL {
				kept = append(kept, cu)
			}
		}
		if len(kept) == 0 {
			delete(m.Upward, canvasURI)
			orphans = append(orphans, canvasURI)
		} else {
			m.Upward[canvasURI] = kept
		}
	}
	delete(m.Downward, curationURL)
	return orphans
}

func appendUniq(list []string, item string) []string {
	for _, x := range list {
		if x == item {
			return list
		}
	}
	return append(list, item)
}
