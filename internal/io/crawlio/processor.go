package crawlio

import (
	"context"
	"log/slog"

	"github.com/iiifsearch/canvasindexer/internal/ent/activity"
	"github.com/iiifsearch/canvasindexer/internal/ent/doc"
	"github.com/iiifsearch/canvasindexer/internal/ent/iiif"
	"github.com/iiifsearch/canvasindexer/internal/str"
	"github.com/iiifsearch/canvasindexer/pkg/ent/model"
	"github.com/jackc/pgx/v5"
)

// pmEdge is a parent map edge buffered during an activity's
// transaction. Edges are applied to the map only after the commit, so a
// rollback cannot leave edges of discarded rows behind.
type pmEdge struct {
	canvasURI   string
	curationURL string
}

// topMeta carries the state of the curation top level metadata pass
// into the canvas pass. Term and actor refer to the last top level
// metadata entry; the thumbnail enhancement and its canvas association
// are attributed to that entry.
type topMeta struct {
	found        bool
	termID       string
	actor        string
	curID        string
	curNew       bool
	hasThumbnail bool
	doc          doc.CurationDoc
}

// processCreate indexes the curation referenced by a Create or Update
// activity. It dereferences the curation, indexes its top level
// metadata, then walks every canvas of every range. All writes of one
// activity share a transaction, so a half-indexed curation never
// becomes visible. It returns the number of canvases first seen.
func (c *crawlio) processCreate(
	ctx context.Context,
	res *resolver,
	act activity.Activity,
) (int, error) {
	slog.Info("Retrieving curation", "url", act.Object.URI)
	var cur iiif.Curation
	err := c.fetcher.GetJSON(ctx, act.Object.URI, &cur)
	if err != nil {
		return 0, err
	}

	tx, err := c.db.Begin(ctx)
	if err != nil {
		slog.Error("Cannot start transaction", "error", err)
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	top := topMeta{
		doc: doc.BuildCurationDoc(cur, act.Type, act.EndTime, nil, 0),
	}
	topJSON, err := c.enc.Encode(top.doc)
	if err != nil {
		return 0, err
	}
	for _, md := range cur.Metadata {
		tup := doc.BuildQualifierTuple(md)
		if tup.Term == "" {
			continue
		}
		top.termID, err = res.ensureTerm(ctx, tx, tup.Qualifier, tup.Term)
		if err != nil {
			return 0, err
		}
		key := model.CurationKey{
			URL:          cur.ID,
			Term:         tup.Term,
			MetadataType: model.MetaTypeCuration,
		}
		top.curID, top.curNew, err = res.ensureCuration(
			ctx, tx, key, string(topJSON),
		)
		if err != nil {
			return 0, err
		}
		top.actor = doc.MetaActor(md)
		err = res.ensureCurationAssoc(
			ctx, tx, top.termID, top.curID, model.MetaTypeCuration, top.actor,
		)
		if err != nil {
			return 0, err
		}
		top.found = true
	}

	var newCanvases int
	var edges []pmEdge
	for _, ran := range cur.Selections {
		// the manifest is shared by all canvases of the range
		var man iiif.Manifest
		err = c.fetcher.GetJSON(ctx, ran.Within.URI, &man)
		if err != nil {
			slog.Warn(
				"Skipping range with unreachable manifest",
				"manifest", ran.Within.URI, "error", err,
			)
			continue
		}
		n, err := c.indexRange(
			ctx, tx, res, cur, act, man, ran.All(), &top, &edges,
		)
		if err != nil {
			return 0, err
		}
		newCanvases += n
	}

	if err = tx.Commit(ctx); err != nil {
		slog.Error("Cannot commit activity", "error", err, "activity", act.ID)
		return 0, err
	}

	for _, e := range edges {
		c.pm.AddEdge(e.canvasURI, e.curationURL)
	}
	if err = c.persistParentMap(); err != nil {
		slog.Warn("Cannot persist parent map", "error", err)
	}
	return newCanvases, nil
}

// indexRange indexes the canvases of one curation range.
func (c *crawlio) indexRange(
	ctx context.Context,
	tx pgx.Tx,
	res *resolver,
	cur iiif.Curation,
	act activity.Activity,
	man iiif.Manifest,
	canvases []iiif.CurationCanvas,
	top *topMeta,
	edges *[]pmEdge,
) (int, error) {
	var newCanvases int
	for i, curCan := range canvases {
		canDoc, ok := doc.BuildCanvasDoc(
			ctx, c.fetcher, man, curCan,
			c.cfg.ThumbnailWidth, c.cfg.ThumbnailHeight,
		)
		if !ok {
			continue
		}
		canURI := canDoc.URI()
		canCurDoc := doc.BuildCurationDoc(cur, act.Type, act.EndTime, &canDoc, i)

		canJSON, err := c.enc.Encode(canDoc)
		if err != nil {
			return 0, err
		}
		canID, isNew, err := res.ensureCanvas(ctx, tx, canURI, string(canJSON))
		if err != nil {
			return 0, err
		}
		if isNew {
			slog.Info("New canvas", "uri", str.ShortTitle(canURI))
			newCanvases++
		} else {
			// A known canvas gets the new metadata merged in. Create and
			// Update are not distinguished here: curations only reference
			// canvases in manifests, so a known canvas always means its
			// associated metadata grows.
			err = c.mergeCanvasMetadata(ctx, tx, canID, curCan)
			if err != nil {
				return 0, err
			}
		}
		*edges = append(*edges, pmEdge{canvasURI: canURI, curationURL: cur.ID})

		if top.found && top.curNew && !top.hasThumbnail {
			doc.EnhanceTopMetaCurationDoc(&top.doc, canDoc)
			topJSON, err := c.enc.Encode(top.doc)
			if err != nil {
				return 0, err
			}
			err = c.setCurationJSON(ctx, tx, top.curID, string(topJSON))
			if err != nil {
				return 0, err
			}
			top.hasThumbnail = true
			err = res.ensureCanvasAssoc(
				ctx, tx, top.termID, canID, model.MetaTypeCuration, top.actor,
			)
			if err != nil {
				return 0, err
			}
		}

		for _, md := range curCan.Metadata {
			tup := doc.BuildQualifierTuple(md)
			if tup.Term == "" {
				continue
			}
			termID, err := res.ensureTerm(ctx, tx, tup.Qualifier, tup.Term)
			if err != nil {
				return 0, err
			}
			actor := doc.MetaActor(md)
			err = res.ensureCanvasAssoc(
				ctx, tx, termID, canID, model.MetaTypeCanvas, actor,
			)
			if err != nil {
				return 0, err
			}
			key := model.CurationKey{
				URL:          canCurDoc.CurationURL,
				Term:         tup.Term,
				MetadataType: model.MetaTypeCanvas,
			}
			canCurJSON, err := c.enc.Encode(canCurDoc)
			if err != nil {
				return 0, err
			}
			curID, _, err := res.ensureCuration(
				ctx, tx, key, string(canCurJSON),
			)
			if err != nil {
				return 0, err
			}
			err = res.ensureCurationAssoc(
				ctx, tx, termID, curID, model.MetaTypeCuration, actor,
			)
			if err != nil {
				return 0, err
			}
		}
	}
	return newCanvases, nil
}

// mergeCanvasMetadata extends a stored canvas document with the
// metadata of another curation canvas excerpt referencing it.
func (c *crawlio) mergeCanvasMetadata(
	ctx context.Context,
	tx pgx.Tx,
	canID string,
	curCan iiif.CurationCanvas,
) error {
	stored, err := c.canvasJSON(ctx, tx, canID)
	if err != nil {
		return err
	}
	var canMap map[string]any
	if err = c.enc.Decode([]byte(stored), &canMap); err != nil {
		slog.Error("Cannot decode canvas document", "error", err, "id", canID)
		return err
	}
	oldMeta, _ := canMap["metadata"].([]any)
	canMap["metadata"] = doc.MergeMetadata(
		oldMeta, curCan.Metadata,
		c.cfg.FacetLabelSortTop, c.cfg.FacetLabelSortBottom,
	)
	merged, err := c.enc.Encode(canMap)
	if err != nil {
		return err
	}
	return c.setCanvasJSON(ctx, tx, canID, string(merged))
}

// processDelete removes every materialization of the curation
// referenced by a Delete or Update activity, together with the term
// associations pointing at them. Canvases orphaned by the removal are
// reclaimed through the parent map unless configured otherwise.
func (c *crawlio) processDelete(
	ctx context.Context,
	act activity.Activity,
) error {
	slog.Info("Deleting curation", "url", act.Object.URI)
	ids, err := c.curationIDsByURL(ctx, act.Object.URI)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		slog.Info("Nothing to delete", "url", act.Object.URI)
	}

	// canvases whose only referencing curation is the one being removed
	var orphans []string
	for _, uri := range c.pm.Canvases(act.Object.URI) {
		if len(c.pm.Curations(uri)) == 1 {
			orphans = append(orphans, uri)
		}
	}

	tx, err := c.db.Begin(ctx)
	if err != nil {
		slog.Error("Cannot start transaction", "error", err)
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, id := range ids {
		if err = c.deleteCuration(ctx, tx, id); err != nil {
			return err
		}
	}

	if !c.cfg.KeepOrphanCanvases {
		for _, uri := range orphans {
			slog.Info("Reclaiming orphaned canvas", "uri", str.ShortTitle(uri))
			if err = c.deleteCanvasByURI(ctx, tx, uri); err != nil {
				return err
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		slog.Error("Cannot commit deletion", "error", err, "activity", act.ID)
		return err
	}

	// only committed removals leave the parent map
	c.pm.RemoveCuration(act.Object.URI)
	if err = c.persistParentMap(); err != nil {
		slog.Warn("Cannot persist parent map", "error", err)
	}
	return nil
}
