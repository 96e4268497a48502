package census

import (
	"strings"

	"github.com/piercedata/acsdash/pkg/errors"
)

// Level selects the geographic resolution of a pull.
type Level string

const (
	// LevelCounty scopes the query to the configured county.
	LevelCounty Level = "county"
	// LevelTract scopes the query to every census tract in the county.
	LevelTract Level = "tract"
	// LevelZCTA scopes the query to a user-supplied list of ZIP Code
	// Tabulation Areas.
	LevelZCTA Level = "zcta"
)

// ParseLevel converts a user-supplied string into a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelCounty:
		return LevelCounty, nil
	case LevelTract:
		return LevelTract, nil
	case LevelZCTA:
		return LevelZCTA, nil
	}
	return "", errors.New(errors.ErrCodeInvalidGeography, "unknown geography level %q (county, tract, zcta)", s)
}

// GeoClause resolves a geography level into the query clause the data
// endpoints expect. For LevelZCTA, zctas is a comma-separated list; all
// whitespace is stripped and an empty result is a validation error raised
// before any network call. The other levels ignore zctas and use the
// configured state and county.
//
// The returned clause is URL-ready: spaces in geography names are
// percent-encoded.
func (c *Client) GeoClause(level Level, zctas string) (string, error) {
	switch level {
	case LevelCounty:
		return "for=county:" + c.cfg.County + "&in=state:" + c.cfg.State, nil
	case LevelTract:
		return "for=tract:*&in=state:" + c.cfg.State + "%20county:" + c.cfg.County, nil
	case LevelZCTA:
		list := strings.Join(strings.Fields(zctas), "")
		if err := errors.ValidateZCTAList(list); err != nil {
			return "", err
		}
		return "for=zip%20code%20tabulation%20area:" + list, nil
	}
	return "", errors.New(errors.ErrCodeInvalidGeography, "unknown geography level %q", level)
}
