package crawlio

import (
	"context"
	"log/slog"

	"github.com/iiifsearch/canvasindexer/pkg/ent/model"
	"github.com/jackc/pgx/v5"
)

type termKey struct {
	qualifier string
	term      string
}

type assocKey struct {
	termID string
	docID  string
}

// resolver caches the identity of every indexed record and every
// association pair for one crawl run. All identity resolution and all
// writes go through it, so repeated linear scans are avoided and no
// pair is inserted twice within a run. It must be rebuilt after any
// activity that removes records and after any rolled back activity;
// lazily patching a stale cache mid-run is unsafe.
type resolver struct {
	terms     map[termKey]string
	canvases  map[string]string
	curations map[model.CurationKey]string
	canAssocs map[assocKey]bool
	curAssocs map[assocKey]bool
}

// loadResolver builds the lookup cache from all existing records.
func (c *crawlio) loadResolver(ctx context.Context) (*resolver, error) {
	slog.Info("Building lookup cache of existing records")
	res := &resolver{
		terms:     make(map[termKey]string),
		canvases:  make(map[string]string),
		curations: make(map[model.CurationKey]string),
		canAssocs: make(map[assocKey]bool),
		curAssocs: make(map[assocKey]bool),
	}

	rows, err := c.db.Query(ctx, "SELECT id, qualifier, term FROM terms")
	if err != nil {
		slog.Error("Cannot load terms", "error", err)
		return nil, err
	}
	var id, qualifier, term string
	_, err = pgx.ForEachRow(rows, []any{&id, &qualifier, &term},
		func() error {
			res.terms[termKey{qualifier, term}] = id
			return nil
		})
	if err != nil {
		return nil, err
	}

	rows, err = c.db.Query(ctx, "SELECT id, canvas_uri FROM canvases")
	if err != nil {
		slog.Error("Cannot load canvases", "error", err)
		return nil, err
	}
	var uri string
	_, err = pgx.ForEachRow(rows, []any{&id, &uri}, func() error {
		res.canvases[uri] = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err = c.db.Query(ctx,
		"SELECT id, curation_url, term, metadata_type FROM curations")
	if err != nil {
		slog.Error("Cannot load curations", "error", err)
		return nil, err
	}
	var url, mdType string
	_, err = pgx.ForEachRow(rows, []any{&id, &url, &term, &mdType},
		func() error {
			key := model.CurationKey{URL: url, Term: term, MetadataType: mdType}
			res.curations[key] = id
			return nil
		})
	if err != nil {
		return nil, err
	}

	rows, err = c.db.Query(ctx,
		"SELECT term_id, canvas_id FROM term_canvas_assocs")
	if err != nil {
		slog.Error("Cannot load canvas associations", "error", err)
		return nil, err
	}
	var termID, docID string
	_, err = pgx.ForEachRow(rows, []any{&termID, &docID}, func() error {
		res.canAssocs[assocKey{termID, docID}] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err = c.db.Query(ctx,
		"SELECT term_id, curation_id FROM term_curation_assocs")
	if err != nil {
		slog.Error("Cannot load curation associations", "error", err)
		return nil, err
	}
	_, err = pgx.ForEachRow(rows, []any{&termID, &docID}, func() error {
		res.curAssocs[assocKey{termID, docID}] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// termID returns the id of a (qualifier, term) pair if it exists.
func (r *resolver) termID(qualifier, term string) (string, bool) {
	id, ok := r.terms[termKey{qualifier, term}]
	return id, ok
}

// canvasID returns the id of a canvas URI if it exists.
func (r *resolver) canvasID(uri string) (string, bool) {
	id, ok := r.canvases[uri]
	return id, ok
}

// curationID returns the id of a curation materialization if it exists.
func (r *resolver) curationID(key model.CurationKey) (string, bool) {
	id, ok := r.curations[key]
	return id, ok
}

// ensureTerm resolves a term, inserting it on first sighting.
func (r *resolver) ensureTerm(
	ctx context.Context,
	tx pgx.Tx,
	qualifier, term string,
) (string, error) {
	if id, ok := r.termID(qualifier, term); ok {
		return id, nil
	}
	id := model.TermID(qualifier, term)
	_, err := tx.Exec(ctx,
		"INSERT INTO terms (id, term, qualifier) VALUES ($1, $2, $3)",
		id, term, qualifier)
	if err != nil {
		slog.Error("Cannot insert term", "error", err,
			"qualifier", qualifier, "term", term)
		return "", err
	}
	r.terms[termKey{qualifier, term}] = id
	return id, nil
}

// ensureCanvas resolves a canvas, inserting it with its document on
// first sighting. The second return value reports whether the canvas
// is new.
func (r *resolver) ensureCanvas(
	ctx context.Context,
	tx pgx.Tx,
	uri, jsonString string,
) (string, bool, error) {
	if id, ok := r.canvasID(uri); ok {
		return id, false, nil
	}
	id := model.CanvasID(uri)
	_, err := tx.Exec(ctx,
		"INSERT INTO canvases (id, canvas_uri, json_string) VALUES ($1, $2, $3)",
		id, uri, jsonString)
	if err != nil {
		slog.Error("Cannot insert canvas", "error", err, "uri", uri)
		return "", false, err
	}
	r.canvases[uri] = id
	return id, true, nil
}

// ensureCuration resolves a curation materialization, inserting it with
// its document on first sighting. The second return value reports
// whether the row is new.
func (r *resolver) ensureCuration(
	ctx context.Context,
	tx pgx.Tx,
	key model.CurationKey,
	jsonString string,
) (string, bool, error) {
	if id, ok := r.curationID(key); ok {
		return id, false, nil
	}
	id := key.ID()
	_, err := tx.Exec(ctx,
		`INSERT INTO curations (id, curation_url, term, metadata_type, json_string)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, key.URL, key.Term, key.MetadataType, jsonString)
	if err != nil {
		slog.Error("Cannot insert curation", "error", err, "url", key.URL)
		return "", false, err
	}
	r.curations[key] = id
	return id, true, nil
}

// ensureCanvasAssoc creates a term-canvas association unless the pair
// already exists. The pair is the primary key: a second actor or
// metadata type for the same pair collapses into the existing row,
// a known limitation of the schema.
func (r *resolver) ensureCanvasAssoc(
	ctx context.Context,
	tx pgx.Tx,
	termID, canvasID, mdType, actor string,
) error {
	if r.canAssocs[assocKey{termID, canvasID}] {
		return nil
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO term_canvas_assocs (term_id, canvas_id, metadata_type, actor)
		 VALUES ($1, $2, $3, $4)`,
		termID, canvasID, mdType, actor)
	if err != nil {
		slog.Error("Cannot insert canvas association", "error", err)
		return err
	}
	r.canAssocs[assocKey{termID, canvasID}] = true
	return nil
}

// ensureCurationAssoc creates a term-curation association unless the
// pair already exists.
func (r *resolver) ensureCurationAssoc(
	ctx context.Context,
	tx pgx.Tx,
	termID, curationID, mdType, actor string,
) error {
	if r.curAssocs[assocKey{termID, curationID}] {
		return nil
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO term_curation_assocs (term_id, curation_id, metadata_type, actor)
		 VALUES ($1, $2, $3, $4)`,
		termID, curationID, mdType, actor)
	if err != nil {
		slog.Error("Cannot insert curation association", "error", err)
		return err
	}
	r.curAssocs[assocKey{termID, curationID}] = true
	return nil
}
