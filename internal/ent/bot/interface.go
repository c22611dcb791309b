package bot

import "context"

// Job is the payload posted to an enhancement bot.
type Job struct {
	Imgs        []JobImage `json:"imgs"`
	CallbackURL string     `json:"callback_url"`
}

// JobImage describes one canvas image for the bot to analyze.
type JobImage struct {
	ManifestURI string `json:"manifest_uri"`
	CanvasURI   string `json:"canvas_uri"`
	ImgURL      string `json:"img_url"`
}

// JobReceipt is a bot's synchronous reply to a posted job.
type JobReceipt struct {
	JobID int `json:"job_id"`
}

// JobResult is the payload a bot posts back to the callback URL once
// its asynchronous work is done.
type JobResult struct {
	JobID   int          `json:"job_id"`
	Results []CanvasTags `json:"results"`
}

// CanvasTags carries the terms a bot derived for one canvas.
type CanvasTags struct {
	CanvasURI string   `json:"canvas_uri"`
	Tags      []string `json:"tags"`
}

// Dispatcher manages enhancement bot jobs. A bot with an outstanding
// job is never sent a second one; there is no timeout for stuck jobs,
// clearing them requires operator intervention.
type Dispatcher interface {
	// DispatchJobs posts one job per configured bot covering all
	// canvases not yet sent to that bot.
	DispatchJobs(ctx context.Context) error

	// ApplyResult clears the bot's waiting state and appends the
	// returned tags as machine-actor term associations.
	ApplyResult(ctx context.Context, res JobResult) error
}
