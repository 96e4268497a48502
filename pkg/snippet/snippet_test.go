package snippet

import (
	"strings"
	"testing"
)

var testURLs = []string{
	"https://api.census.gov/data/2023/acs/acs5/subject?get=NAME,S1901_C01_012E&for=county:053&in=state:53&key=k",
	"https://api.census.gov/data/2023/acs/acs5/profile?get=NAME,DP02_0062PE&for=county:053&in=state:53&key=k",
}

func TestPython(t *testing.T) {
	got := Python(testURLs)

	for _, want := range []string{
		"import requests, pandas as pd",
		"urls = ['" + testURLs[0] + "', '" + testURLs[1] + "']",
		"requests.get(u)",
		"columns.duplicated()",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Python snippet missing %q:\n%s", want, got)
		}
	}

	// Deterministic output
	if Python(testURLs) != got {
		t.Error("Python snippet should be byte-stable")
	}
}

func TestPython_EmptyURLList(t *testing.T) {
	got := Python(nil)
	if !strings.Contains(got, "urls = []") {
		t.Errorf("empty URL list should render an empty Python list:\n%s", got)
	}
}

func TestR(t *testing.T) {
	got := R(testURLs)

	for _, want := range []string{
		"library(httr); library(jsonlite); library(dplyr); library(purrr)",
		`urls <- c("` + testURLs[0] + `", "` + testURLs[1] + `")`,
		"fromJSON(res)",
		`reduce(dfs, full_join, by = "NAME")`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("R snippet missing %q:\n%s", want, got)
		}
	}

	if R(testURLs) != got {
		t.Error("R snippet should be byte-stable")
	}
}

func TestPythonQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"it's", `'it\'s'`},
		{`back\slash`, `'back\\slash'`},
	}
	for _, tt := range tests {
		if got := pythonQuote(tt.in); got != tt.want {
			t.Errorf("pythonQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
