package census

import (
	"context"
	"strings"
	"unicode"
)

// Axis markers as they appear in ACS subject-table labels. Variable labels
// are pipe-delimited hierarchical segments; demographic axes appear as
// uppercase header segments.
const (
	ageMarker = "!!AGE!!"
	sexMarker = "!!SEX!!"
)

var raceMarkers = []string{"!!RACE", "!!ETHNICITY"}

// estimateSuffix marks estimate variables; margin-of-error ("M") and
// annotation ("EA", "MA") columns are excluded by requiring the code to end
// in this suffix.
const estimateSuffix = "E"

// SelectVars computes the variable codes to request for a group, a measure
// fragment, and the requested breakdown axes.
//
// A variable is kept when its code is an estimate, its label contains the
// measure fragment, and its label carries a requested axis marker. Axes are
// checked in fixed order age, sex, race; the first match wins, so a code is
// returned at most once. Codes appear in the metadata order, deduplicated.
//
// The result is never empty: when no breakdown is requested, or when
// breakdowns are requested but nothing matches, the selection degrades to
// the single overall estimate "{groupID}_001E".
func (c *Client) SelectVars(ctx context.Context, groupID, fragment string, wantAge, wantSex, wantRace bool) ([]string, error) {
	labels, order, err := c.Labels(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var out []string
	seen := make(map[string]bool)
	for _, code := range order {
		if !strings.HasSuffix(code, estimateSuffix) {
			continue
		}
		label := labels[code]
		if !strings.Contains(label, fragment) {
			continue
		}

		keep := wantAge && strings.Contains(label, ageMarker)
		if !keep && wantSex {
			keep = strings.Contains(label, sexMarker)
		}
		if !keep && wantRace {
			for _, m := range raceMarkers {
				if strings.Contains(label, m) {
					keep = true
					break
				}
			}
		}
		if keep && !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}

	if len(out) == 0 {
		fallback := groupID + "_001E"
		if wantAge || wantSex || wantRace {
			c.logger.Warn("no variables matched requested breakdowns, using overall estimate",
				"group", groupID, "fragment", fragment, "fallback", fallback)
		}
		return []string{fallback}, nil
	}
	return out, nil
}

// CleanLabel converts a hierarchical ACS variable label into a short
// human-readable form using fixed rules:
//
//  1. split the label on the "!!" delimiter;
//  2. drop a leading "Estimate" segment;
//  3. drop axis header segments, identified as segments whose letters are
//     all uppercase (e.g. "AGE", "SEX", "RACE AND HISPANIC OR LATINO ORIGIN");
//  4. return the last remaining segment.
//
// An empty label yields an empty string.
func CleanLabel(label string) string {
	segs := strings.Split(label, "!!")
	var kept []string
	for i, seg := range segs {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if i == 0 && seg == "Estimate" {
			continue
		}
		if isUpperSegment(seg) {
			continue
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return ""
	}
	return kept[len(kept)-1]
}

// isUpperSegment reports whether every letter in s is uppercase.
// Segments without letters do not count as axis headers.
func isUpperSegment(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
