package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/piercedata/acsdash/pkg/census"
	"github.com/piercedata/acsdash/pkg/errors"
	"github.com/piercedata/acsdash/pkg/history"
	"github.com/piercedata/acsdash/pkg/observability"
	"github.com/piercedata/acsdash/pkg/table"
)

// Runner executes pull runs against a census client. History is optional; a
// nil store disables run recording. Runner is safe for concurrent use as long
// as the client and store are.
type Runner struct {
	Client  *census.Client
	Logger  *log.Logger
	History history.Store
}

// NewRunner wires a runner. A nil logger is replaced with a silent one.
func NewRunner(client *census.Client, logger *log.Logger, store history.Store) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{Client: client, Logger: logger, History: store}
}

// Execute performs one pull run: resolve the geography clause, fetch every
// selected indicator in order, and join the per-indicator tables on their
// shared geography columns. Validation failures surface before any request
// is issued, so the run's URL log stays empty for bad input.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	geo, err := r.Client.GeoClause(opts.Level, opts.ZCTAs)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()
	observability.Pull().OnRunStart(ctx, runID, opts.Indicators)
	r.Logger.Debug("starting pull run",
		"run_id", runID,
		"level", opts.Level,
		"indicators", len(opts.Indicators))

	run := r.Client.NewRun(opts.Refresh)
	tables := make([]*table.Table, 0, len(opts.Indicators))
	for _, name := range opts.Indicators {
		ind, _ := census.Lookup(name)
		detailed := ind.Detailed() && opts.Breakdown()

		fetchStart := time.Now()
		var tbl *table.Table
		if detailed {
			tbl, err = run.FetchDetailed(ctx, ind, geo, opts.Age, opts.Sex, opts.Race)
		} else {
			tbl, err = run.FetchSimple(ctx, ind.Code, ind.Dataset, geo)
		}
		observability.Pull().OnIndicator(ctx, runID, ind.Name, detailed, time.Since(fetchStart), err)
		if err != nil {
			observability.Pull().OnRunComplete(ctx, runID, 0, time.Since(started), err)
			return nil, errors.Wrap(errors.GetCode(err), err, "indicator %q", ind.Name)
		}
		tables = append(tables, tbl)
	}

	joined, err := table.Join(tables)
	if err != nil {
		observability.Pull().OnRunComplete(ctx, runID, 0, time.Since(started), err)
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "assembling result")
	}
	joined = joined.Rename(displayNames())

	requests, hits := run.Stats()
	result := &Result{
		RunID:     runID,
		StartedAt: started,
		Table:     joined,
		URLs:      run.URLs(),
		Stats: Stats{
			FetchTime: time.Since(started),
			Requests:  requests,
			CacheHits: hits,
		},
	}
	observability.Pull().OnRunComplete(ctx, runID, len(joined.Rows), result.Stats.FetchTime, nil)
	r.Logger.Debug("pull run complete",
		"run_id", runID,
		"rows", len(joined.Rows),
		"requests", requests,
		"cache_hits", hits)

	r.record(ctx, result, opts)
	return result, nil
}

// displayNames maps raw single-variable column codes to their catalog display
// names, e.g. S1901_C01_012E to "Median household income ($) (S1901_C01_012E)".
// Detailed indicator columns are already renamed during the fetch and never
// match a raw code.
func displayNames() map[string]string {
	mapping := make(map[string]string)
	for _, ind := range census.Catalog() {
		mapping[ind.Code] = ind.Name + " (" + ind.Code + ")"
	}
	return mapping
}

// record saves the run to history. Failures are logged and swallowed; a
// broken history store must not fail an otherwise successful pull.
func (r *Runner) record(ctx context.Context, res *Result, opts Options) {
	if r.History == nil {
		return
	}
	rec := &history.Record{
		ID:         res.RunID,
		CreatedAt:  res.StartedAt,
		Level:      string(opts.Level),
		ZCTAs:      opts.ZCTAs,
		Indicators: opts.Indicators,
		Age:        opts.Age,
		Sex:        opts.Sex,
		Race:       opts.Race,
		URLs:       res.URLs,
		Rows:       len(res.Table.Rows),
		Columns:    len(res.Table.Columns),
	}
	if err := r.History.Save(ctx, rec); err != nil {
		r.Logger.Warn("could not record run in history", "run_id", res.RunID, "error", err)
	}
}
