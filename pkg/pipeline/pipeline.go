// Package pipeline orchestrates a complete pull run: geography resolution,
// per-indicator fetches, and result assembly.
//
// A run is triggered by explicit user action (CLI flag set, TUI key press, or
// HTTP request) and executes synchronously to completion or failure. Fetches
// are sequential with no fan-out and no retry; the first failure aborts the
// run.
package pipeline

import (
	"time"

	"github.com/piercedata/acsdash/pkg/census"
	"github.com/piercedata/acsdash/pkg/errors"
	"github.com/piercedata/acsdash/pkg/table"
)

// Options selects what a run pulls.
type Options struct {
	Level      census.Level // geography level
	ZCTAs      string       // comma-separated ZCTA codes, LevelZCTA only
	Indicators []string     // indicator display names; empty = default selection
	Age        bool         // break down by age
	Sex        bool         // break down by sex
	Race       bool         // break down by race/ethnicity
	Refresh    bool         // bypass the response cache
}

// Breakdown reports whether any demographic axis is requested.
func (o *Options) Breakdown() bool { return o.Age || o.Sex || o.Race }

// ValidateAndSetDefaults checks the options against the indicator catalog
// and fills in the default indicator selection.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Level == "" {
		o.Level = census.LevelCounty
	}
	if len(o.Indicators) == 0 {
		o.Indicators = append([]string(nil), census.DefaultSelection...)
	}
	for _, name := range o.Indicators {
		if err := errors.ValidateIndicatorName(name); err != nil {
			return err
		}
		if _, ok := census.Lookup(name); !ok {
			return errors.New(errors.ErrCodeInvalidIndicator, "unknown indicator %q", name)
		}
	}
	return nil
}

// Stats carries timing and cache information for a completed run.
type Stats struct {
	FetchTime time.Duration `json:"fetch_time"`
	Requests  int           `json:"requests"`
	CacheHits int           `json:"cache_hits"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID     string       `json:"run_id"`
	StartedAt time.Time    `json:"started_at"`
	Table     *table.Table `json:"-"`
	URLs      []string     `json:"urls"`
	Stats     Stats        `json:"stats"`
}
