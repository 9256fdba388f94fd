// Package fetch retrieves JSON records for URL-template sources.
package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/zerr"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of an error response is kept for the message.
const maxBody = 512

// Fetcher implements ports.Fetcher over HTTP. Responses must be a JSON
// array of objects.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher. A nil client gets one with DefaultTimeout.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{client: client}
}

// Fetch GETs url and decodes the records.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to build request"), "url", url)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to fetch"), "url", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		err := zerr.With(domain.ErrFetchFailed, "url", url)
		err = zerr.With(err, "status", resp.StatusCode)
		if len(body) > 0 {
			err = zerr.With(err, "body", string(body))
		}
		return nil, err
	}

	var records []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to decode records"), "url", url)
	}
	return records, nil
}
