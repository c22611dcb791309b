package botio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gnames/gnfmt"
	"github.com/iiifsearch/canvasindexer/internal/ent/bot"
	"github.com/iiifsearch/canvasindexer/internal/ent/doc"
	"github.com/iiifsearch/canvasindexer/internal/ent/fetch"
	"github.com/iiifsearch/canvasindexer/pkg/config"
	"github.com/iiifsearch/canvasindexer/pkg/ent/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// botio is a struct that implements bot.Dispatcher interface.
type botio struct {
	cfg     config.Config
	db      *pgxpool.Pool
	enc     gnfmt.Encoder
	fetcher fetch.Dereferencer
}

// New returns a new instance of Dispatcher.
func New(cfg config.Config, fetcher fetch.Dereferencer) (bot.Dispatcher, error) {
	res := botio{
		cfg:     cfg,
		enc:     gnfmt.GNjson{},
		fetcher: fetcher,
	}
	db, err := pgxConn(cfg)
	if err != nil {
		return nil, err
	}
	res.db = db
	return &res, nil
}

// DispatchJobs posts one job per configured bot. Bots work
// independently, so failures are logged per bot and never cancel the
// other dispatches.
func (b *botio) DispatchJobs(ctx context.Context) error {
	if len(b.cfg.BotURLs) == 0 {
		return nil
	}
	canvases, err := b.loadCanvases(ctx)
	if err != nil {
		return err
	}
	if len(canvases) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, botURL := range b.cfg.BotURLs {
		botURL := botURL
		g.Go(func() error {
			if err := b.postJob(ctx, botURL, canvases); err != nil {
				slog.Warn("Cannot post enhancement job",
					"bot", botURL, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

type canvasRec struct {
	uri string
	doc doc.CanvasDoc
}

func (b *botio) loadCanvases(ctx context.Context) ([]canvasRec, error) {
	rows, err := b.db.Query(ctx,
		"SELECT canvas_uri, json_string FROM canvases ORDER BY canvas_uri")
	if err != nil {
		slog.Error("Cannot load canvases", "error", err)
		return nil, err
	}
	var uri, blob string
	var res []canvasRec
	_, err = pgx.ForEachRow(rows, []any{&uri, &blob}, func() error {
		var d doc.CanvasDoc
		if err := b.enc.Decode([]byte(blob), &d); err != nil {
			slog.Warn("Cannot decode canvas document", "uri", uri,
				"error", err)
			return nil
		}
		res = append(res, canvasRec{uri: uri, doc: d})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// postJob sends one bot every canvas it has not been sent before. A bot
// still waiting for an outstanding job is skipped; the canvases stay
// queued for the next dispatch.
func (b *botio) postJob(
	ctx context.Context,
	botURL string,
	canvases []canvasRec,
) error {
	waitingJobID, finished, err := b.botState(ctx, botURL)
	if err != nil {
		return err
	}
	if waitingJobID != -1 {
		slog.Info("Still waiting for results from bot, not sending a job",
			"bot", botURL, "jobID", waitingJobID)
		return nil
	}
	finishedSet := make(map[string]bool, len(finished))
	for _, uri := range finished {
		finishedSet[uri] = true
	}

	job := bot.Job{CallbackURL: b.cfg.CallbackURL}
	for _, can := range canvases {
		if finishedSet[can.uri] {
			continue
		}
		job.Imgs = append(job.Imgs, bot.JobImage{
			ManifestURI: can.doc.ManifestURL,
			CanvasURI:   can.doc.URI(),
			ImgURL:      can.doc.CanvasThumbnail,
		})
		finished = append(finished, can.uri)
	}
	if len(job.Imgs) == 0 {
		slog.Info("No new canvases for bot", "bot", botURL)
		return nil
	}

	var receipt bot.JobReceipt
	if err = b.fetcher.PostJSON(ctx, botURL, job, &receipt); err != nil {
		return err
	}
	slog.Info("Enhancement job accepted", "bot", botURL,
		"jobID", receipt.JobID, "canvases", len(job.Imgs))
	return b.saveBotState(ctx, botURL, receipt.JobID, finished)
}

func (b *botio) botState(
	ctx context.Context,
	botURL string,
) (int, []string, error) {
	var waitingJobID int
	var blob string
	err := b.db.QueryRow(ctx,
		`SELECT waiting_job_id, finished_canvases
		 FROM bot_states WHERE bot_url = $1`, botURL,
	).Scan(&waitingJobID, &blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return -1, nil, nil
	}
	if err != nil {
		slog.Error("Cannot read bot state", "error", err, "bot", botURL)
		return 0, nil, err
	}
	var finished []string
	if err = b.enc.Decode([]byte(blob), &finished); err != nil {
		slog.Error("Cannot decode bot state", "error", err, "bot", botURL)
		return 0, nil, err
	}
	return waitingJobID, finished, nil
}

func (b *botio) saveBotState(
	ctx context.Context,
	botURL string,
	jobID int,
	finished []string,
) error {
	blob, err := b.enc.Encode(finished)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(ctx,
		`INSERT INTO bot_states (bot_url, waiting_job_id, finished_canvases)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (bot_url) DO UPDATE
		 SET waiting_job_id = $2, finished_canvases = $3`,
		botURL, jobID, string(blob))
	if err != nil {
		slog.Error("Cannot save bot state", "error", err, "bot", botURL)
	}
	return err
}

// ApplyResult stores the tags a bot derived. The bot is identified by
// the job id it was waiting for; its waiting state is cleared even when
// some results cannot be applied.
func (b *botio) ApplyResult(ctx context.Context, res bot.JobResult) error {
	var botURL string
	err := b.db.QueryRow(ctx,
		"SELECT bot_url FROM bot_states WHERE waiting_job_id = $1",
		res.JobID,
	).Scan(&botURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("no bot is waiting for job %d", res.JobID)
	}
	if err != nil {
		slog.Error("Cannot find bot state", "error", err, "jobID", res.JobID)
		return err
	}
	_, err = b.db.Exec(ctx,
		"UPDATE bot_states SET waiting_job_id = -1 WHERE bot_url = $1", botURL)
	if err != nil {
		slog.Error("Cannot clear bot state", "error", err, "bot", botURL)
		return err
	}

	tx, err := b.db.Begin(ctx)
	if err != nil {
		slog.Error("Cannot start transaction", "error", err)
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, result := range res.Results {
		var canvasID string
		err = tx.QueryRow(ctx,
			"SELECT id FROM canvases WHERE canvas_uri = $1",
			result.CanvasURI,
		).Scan(&canvasID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("result for inexistent canvas %q",
				result.CanvasURI)
		}
		if err != nil {
			slog.Error("Cannot find canvas", "error", err,
				"uri", result.CanvasURI)
			return err
		}
		for _, tag := range result.Tags {
			termID := model.TermID("tag", tag)
			_, err = tx.Exec(ctx,
				`INSERT INTO terms (id, term, qualifier)
				 VALUES ($1, $2, 'tag')
				 ON CONFLICT DO NOTHING`, termID, tag)
			if err != nil {
				slog.Error("Cannot insert term", "error", err, "term", tag)
				return err
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO term_canvas_assocs
				 (term_id, canvas_id, metadata_type, actor)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT DO NOTHING`,
				termID, canvasID, model.MetaTypeCanvas, model.ActorMachine)
			if err != nil {
				slog.Error("Cannot insert canvas association", "error", err)
				return err
			}
		}
	}
	return tx.Commit(ctx)
}
