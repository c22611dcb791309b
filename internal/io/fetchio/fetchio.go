package fetchio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/iiifsearch/canvasindexer/internal/ent/fetch"
)

// fetchio is a Dereferencer over net/http with bounded exponential
// backoff on transient failures.
type fetchio struct {
	client  *http.Client
	retries uint64
}

// New returns a new instance of Dereferencer. retries is the number of
// additional attempts after the first failed one.
func New(retries int) fetch.Dereferencer {
	if retries < 0 {
		retries = 0
	}
	res := fetchio{
		client:  &http.Client{Timeout: 30 * time.Second},
		retries: uint64(retries),
	}
	return &res
}

// retryable HTTP statuses per the dereference protocol.
func isRetryable(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// GetJSON dereferences url and decodes the response body into dst.
func (f *fetchio) GetJSON(ctx context.Context, url string, dst any) error {
	return f.do(ctx, http.MethodGet, url, nil, dst)
}

// PostJSON posts body as JSON to url and decodes the response into dst.
func (f *fetchio) PostJSON(
	ctx context.Context,
	url string,
	body, dst any,
) error {
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Error("Cannot encode request body", "error", err, "url", url)
		return err
	}
	return f.do(ctx, http.MethodPost, url, payload, dst)
}

func (f *fetchio) do(
	ctx context.Context,
	method, url string,
	payload []byte,
	dst any,
) error {
	op := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if isRetryable(resp.StatusCode) {
			return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
		}
		if resp.StatusCode != http.StatusOK {
			err = fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
			return backoff.Permanent(err)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if dst == nil {
			return nil
		}
		if err = json.Unmarshal(data, dst); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	err := backoff.Retry(
		op,
		backoff.WithContext(backoff.WithMaxRetries(bo, f.retries), ctx),
	)
	if err != nil {
		slog.Warn("Cannot dereference resource", "url", url, "error", err)
	}
	return err
}
