package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// zctaRegex matches a single ZIP Code Tabulation Area code (five digits).
var zctaRegex = regexp.MustCompile(`^[0-9]{5}$`)

// ValidateZCTAList validates a comma-separated list of ZCTA codes after
// whitespace stripping. An empty list is a validation error: the caller must
// halt before any network call is made.
func ValidateZCTAList(list string) error {
	if list == "" {
		return New(ErrCodeInvalidGeography, "at least one ZCTA code is required")
	}
	for _, code := range strings.Split(list, ",") {
		if !zctaRegex.MatchString(code) {
			return New(ErrCodeInvalidGeography, "invalid ZCTA code: %q", code)
		}
	}
	return nil
}

// groupIDRegex matches ACS table group identifiers such as "S1810" or "DP02".
var groupIDRegex = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{2,5}[A-Z]?$`)

// ValidateGroupID validates an ACS group/subject table identifier.
func ValidateGroupID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidGroup, "group id cannot be empty")
	}
	if !groupIDRegex.MatchString(id) {
		return New(ErrCodeInvalidGroup, "invalid group id: %q", id)
	}
	return nil
}

// ValidateIndicatorName validates an indicator display name for safety.
// Catalog membership is checked separately by the census package; this only
// rejects names that are empty, oversized, or contain control characters.
func ValidateIndicatorName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidIndicator, "indicator name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidIndicator, "indicator name too long (max 128 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidIndicator, "indicator name contains invalid control characters")
		}
	}
	return nil
}

// variableCodeRegex matches ACS variable codes such as "S1901_C01_012E" or
// "DP02_0062PE".
var variableCodeRegex = regexp.MustCompile(`^[A-Z0-9]+(_[A-Z0-9]+)*$`)

// ValidateVariableCode validates an ACS variable code before it is placed in
// a request URL.
func ValidateVariableCode(code string) error {
	if code == "" {
		return New(ErrCodeInvalidInput, "variable code cannot be empty")
	}
	if !variableCodeRegex.MatchString(code) {
		return New(ErrCodeInvalidInput, "invalid variable code: %q", code)
	}
	return nil
}
