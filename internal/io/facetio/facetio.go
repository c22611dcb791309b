package facetio

import (
	"context"
	"log/slog"

	"github.com/gnames/gnfmt"
	"github.com/iiifsearch/canvasindexer/internal/ent/facet"
	"github.com/iiifsearch/canvasindexer/pkg/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// facetio is a struct that implements facet.Builder interface.
type facetio struct {
	cfg config.Config
	db  *pgxpool.Pool
	enc gnfmt.Encoder
}

// New returns a new instance of Builder.
func New(cfg config.Config) (facet.Builder, error) {
	res := facetio{
		cfg: cfg,
		enc: gnfmt.GNjson{},
	}
	db, err := pgxConn(cfg)
	if err != nil {
		return nil, err
	}
	res.db = db
	return &res, nil
}

// Build regenerates the pre-built facet summary from the canvas
// metadata associations and persists it wholesale.
func (f *facetio) Build(ctx context.Context) error {
	assocs, err := f.loadAssocs(ctx)
	if err != nil {
		return err
	}
	summary := facet.BuildSummary(assocs, facet.SortConfig{
		LabelSortTop:      f.cfg.FacetLabelSortTop,
		LabelSortBottom:   f.cfg.FacetLabelSortBottom,
		ValueSortAlphanum: f.cfg.FacetValueSortAlphanum,
		ValueSortTop:      f.cfg.FacetValueSortTop,
		ValueSortBottom:   f.cfg.FacetValueSortBottom,
	})
	blob, err := f.enc.Encode(summary)
	if err != nil {
		slog.Error("Cannot encode facet summary", "error", err)
		return err
	}
	return f.persist(ctx, string(blob))
}

// loadAssocs reads every canvas metadata association together with its
// term. The alphabetical order makes the derived summary deterministic;
// pinning and per-facet value sorting reorder it afterwards.
func (f *facetio) loadAssocs(ctx context.Context) ([]facet.AssocRow, error) {
	rows, err := f.db.Query(ctx,
		`SELECT t.qualifier, t.term, a.actor
		 FROM term_canvas_assocs a
		 JOIN terms t ON t.id = a.term_id
		 WHERE a.metadata_type = 'canvas'
		 ORDER BY t.qualifier, t.term`)
	if err != nil {
		slog.Error("Cannot load canvas associations", "error", err)
		return nil, err
	}
	var row facet.AssocRow
	var res []facet.AssocRow
	_, err = pgx.ForEachRow(
		rows, []any{&row.Qualifier, &row.Term, &row.Actor},
		func() error {
			res = append(res, row)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// persist replaces the single stored facet summary row.
func (f *facetio) persist(ctx context.Context, blob string) error {
	tag, err := f.db.Exec(ctx,
		"UPDATE facet_lists SET json_string = $1", blob)
	if err != nil {
		slog.Error("Cannot update facet summary", "error", err)
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = f.db.Exec(ctx,
		"INSERT INTO facet_lists (json_string) VALUES ($1)", blob)
	if err != nil {
		slog.Error("Cannot insert facet summary", "error", err)
	}
	return err
}
