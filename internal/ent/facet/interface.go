package facet

import "context"

// Builder regenerates the persisted facet summary from the current
// association table state.
type Builder interface {
	// Build derives the facet summary and persists it wholesale.
	Build(ctx context.Context) error
}
