package fetch

import (
	"context"
	"encoding/json"
)

// Dereferencer fetches external JSON documents by URL. Implementations
// retry transient failures with backoff; after exhausting retries the
// returned error lets callers degrade to an empty sentinel instead of
// aborting a crawl run.
type Dereferencer interface {
	// GetJSON dereferences url and decodes the response body into dst.
	GetJSON(ctx context.Context, url string, dst any) error

	// PostJSON posts body as JSON to url and decodes the response body
	// into dst.
	PostJSON(ctx context.Context, url string, body, dst any) error
}

// Ref is a field that references a document either as a plain string
// URI or as an object with an 'id' or '@id' key.
type Ref struct {
	URI string
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.URI = s
		return nil
	}
	var obj struct {
		ID   string `json:"id"`
		AtID string `json:"@id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.URI = obj.ID
	if r.URI == "" {
		r.URI = obj.AtID
	}
	return nil
}
