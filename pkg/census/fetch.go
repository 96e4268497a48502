package census

import (
	"context"
	"strings"
	"sync"

	"github.com/piercedata/acsdash/pkg/errors"
	"github.com/piercedata/acsdash/pkg/table"
)

// Run scopes one pull session. It records every request URL issued, in
// order, for display and export, and counts response-cache hits. A Run is
// cheap; create a fresh one per user-triggered pull so the URL log starts
// empty.
type Run struct {
	c       *Client
	refresh bool

	mu       sync.Mutex
	urls     []string
	requests int
	hits     int
}

// NewRun starts a pull session. With refresh true, the response cache is
// bypassed for every request in the session.
func (c *Client) NewRun(refresh bool) *Run {
	return &Run{c: c, refresh: refresh}
}

// URLs returns the exact request URLs issued so far, in order.
func (r *Run) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

// Stats returns the number of data requests issued and how many were served
// from the response cache.
func (r *Run) Stats() (requests, cacheHits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests, r.hits
}

// fetch logs the URL, then resolves it through the client's response cache.
// The URL is appended to the log before the request goes out, so a failed
// request still appears in the log.
func (r *Run) fetch(ctx context.Context, rawURL string) (*table.Table, error) {
	r.mu.Lock()
	r.urls = append(r.urls, rawURL)
	r.requests++
	r.mu.Unlock()

	tbl, hit, err := r.c.fetchTable(ctx, rawURL, r.refresh)
	if err != nil {
		return nil, err
	}
	if hit {
		r.mu.Lock()
		r.hits++
		r.mu.Unlock()
	}
	return tbl, nil
}

// FetchSimple pulls a single-variable indicator: one GET against the
// indicator's dataset for NAME plus the variable code, parsed into a table
// with duplicate columns dropped keep-first.
func (r *Run) FetchSimple(ctx context.Context, code, dataset, geo string) (*table.Table, error) {
	if err := errors.ValidateVariableCode(code); err != nil {
		return nil, err
	}
	return r.fetch(ctx, r.c.datasetURL(dataset, code, geo))
}

// FetchDetailed pulls a breakdown-expanded indicator: the variable list is
// resolved through the selector, requested in one comma-joined GET against
// the subject dataset, and each variable column is renamed to
// "{short name} – {cleaned label}". A variable whose metadata label is
// missing keeps its code in place of the cleaned label.
func (r *Run) FetchDetailed(ctx context.Context, ind Indicator, geo string, wantAge, wantSex, wantRace bool) (*table.Table, error) {
	if !ind.Detailed() {
		return nil, errors.New(errors.ErrCodeInvalidIndicator, "indicator %q has no detailed group", ind.Name)
	}

	codes, err := r.c.SelectVars(ctx, ind.Group, ind.Fragment, wantAge, wantSex, wantRace)
	if err != nil {
		return nil, err
	}

	tbl, err := r.fetch(ctx, r.c.datasetURL("subject", strings.Join(codes, ","), geo))
	if err != nil {
		return nil, err
	}

	labels, _, err := r.c.Labels(ctx, ind.Group)
	if err != nil {
		return nil, err
	}
	rename := make(map[string]string, len(codes))
	for _, code := range codes {
		cleaned := CleanLabel(labels[code])
		if cleaned == "" {
			cleaned = code
		}
		rename[code] = ind.ShortName() + " – " + cleaned
	}
	return tbl.Rename(rename), nil
}
