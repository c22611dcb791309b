package model

import (
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnuuid"
)

// Metadata type of an association or curation materialization.
const (
	MetaTypeCanvas   = "canvas"
	MetaTypeCuration = "curation"
)

// Actor classes for associations.
const (
	ActorHuman   = "human"
	ActorMachine = "machine"
	ActorUnknown = "unknown"
)

// CurationKey identifies one curation materialization: the source
// curation URL, the term value, and the metadata type. It replaces
// string concatenation so term values containing separator substrings
// cannot collide.
type CurationKey struct {
	URL          string
	Term         string
	MetadataType string
}

// ID returns the deterministic row id for the key.
func (k CurationKey) ID() string {
	return idOf(k.URL, k.Term, k.MetadataType)
}

// TermID returns the deterministic row id of a (qualifier, term) pair.
func TermID(qualifier, term string) string {
	return idOf("term", qualifier, term)
}

// CanvasID returns the deterministic row id of a canvas URI.
func CanvasID(canvasURI string) string {
	return idOf("canvas", canvasURI)
}

// idOf derives a UUID v5 from the JSON encoding of its parts. JSON
// framing keeps distinct part lists from sharing a seed the way naive
// separator concatenation would.
func idOf(parts ...string) string {
	enc := gnfmt.GNjson{}
	seed, err := enc.Encode(parts)
	if err != nil {
		// a []string cannot fail to encode
		panic(err)
	}
	return gnuuid.New(string(seed)).String()
}
