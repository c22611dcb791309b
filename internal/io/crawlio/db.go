package crawlio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iiifsearch/canvasindexer/internal/ent/activity"
	"github.com/iiifsearch/canvasindexer/internal/ent/doc"
	"github.com/jackc/pgx/v5"
)

// lastCrawlTime returns the timestamp of the most recent crawl log
// entry. A zero time means the index has never been crawled and every
// activity qualifies.
func (c *crawlio) lastCrawlTime(ctx context.Context) (time.Time, error) {
	var datetime string
	err := c.db.QueryRow(ctx,
		"SELECT datetime FROM crawl_logs ORDER BY log_id DESC LIMIT 1",
	).Scan(&datetime)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		slog.Error("Cannot read crawl log", "error", err)
		return time.Time{}, err
	}
	return activity.ParseTime(datetime)
}

// appendCrawlLog records a finished crawl pass. An entry is written
// even when nothing changed so that the next pass has a fresh lower
// bound.
func (c *crawlio) appendCrawlLog(ctx context.Context, newCanvases int) error {
	_, err := c.db.Exec(ctx,
		"INSERT INTO crawl_logs (datetime, new_canvases) VALUES ($1, $2)",
		doc.UTCNowISO(), newCanvases)
	if err != nil {
		slog.Error("Cannot append crawl log", "error", err)
	}
	return err
}

func (c *crawlio) canvasJSON(
	ctx context.Context,
	tx pgx.Tx,
	id string,
) (string, error) {
	var res string
	err := tx.QueryRow(ctx,
		"SELECT json_string FROM canvases WHERE id = $1", id).Scan(&res)
	if err != nil {
		slog.Error("Cannot read canvas document", "error", err, "id", id)
		return "", err
	}
	return res, nil
}

func (c *crawlio) setCanvasJSON(
	ctx context.Context,
	tx pgx.Tx,
	id, jsonString string,
) error {
	_, err := tx.Exec(ctx,
		"UPDATE canvases SET json_string = $1 WHERE id = $2", jsonString, id)
	if err != nil {
		slog.Error("Cannot update canvas document", "error", err, "id", id)
	}
	return err
}

func (c *crawlio) setCurationJSON(
	ctx context.Context,
	tx pgx.Tx,
	id, jsonString string,
) error {
	_, err := tx.Exec(ctx,
		"UPDATE curations SET json_string = $1 WHERE id = $2", jsonString, id)
	if err != nil {
		slog.Error("Cannot update curation document", "error", err, "id", id)
	}
	return err
}

// curationIDsByURL returns the ids of every materialization of a
// curation, one per associated term and metadata type.
func (c *crawlio) curationIDsByURL(
	ctx context.Context,
	url string,
) ([]string, error) {
	rows, err := c.db.Query(ctx,
		"SELECT id FROM curations WHERE curation_url = $1", url)
	if err != nil {
		slog.Error("Cannot query curations", "error", err, "url", url)
		return nil, err
	}
	var id string
	var res []string
	_, err = pgx.ForEachRow(rows, []any{&id}, func() error {
		res = append(res, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// deleteCuration removes one curation materialization together with its
// term associations.
func (c *crawlio) deleteCuration(
	ctx context.Context,
	tx pgx.Tx,
	id string,
) error {
	_, err := tx.Exec(ctx,
		"DELETE FROM term_curation_assocs WHERE curation_id = $1", id)
	if err != nil {
		slog.Error("Cannot delete curation associations", "error", err, "id", id)
		return err
	}
	_, err = tx.Exec(ctx, "DELETE FROM curations WHERE id = $1", id)
	if err != nil {
		slog.Error("Cannot delete curation", "error", err, "id", id)
	}
	return err
}

// deleteCanvasByURI removes a canvas together with its term
// associations. A missing canvas is not an error; orphan reclamation
// may race with manual cleanup.
func (c *crawlio) deleteCanvasByURI(
	ctx context.Context,
	tx pgx.Tx,
	uri string,
) error {
	var id string
	err := tx.QueryRow(ctx,
		"SELECT id FROM canvases WHERE canvas_uri = $1", uri).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		slog.Error("Cannot find canvas", "error", err, "uri", uri)
		return err
	}
	_, err = tx.Exec(ctx,
		"DELETE FROM term_canvas_assocs WHERE canvas_id = $1", id)
	if err != nil {
		slog.Error("Cannot delete canvas associations", "error", err, "id", id)
		return err
	}
	_, err = tx.Exec(ctx, "DELETE FROM canvases WHERE id = $1", id)
	if err != nil {
		slog.Error("Cannot delete canvas", "error", err, "id", id)
	}
	return err
}
