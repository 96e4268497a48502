package census

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestSelectVars(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		wantAge  bool
		wantSex  bool
		wantRace bool
		want     []string
	}{
		{"no breakdowns falls back to overall", false, false, false, []string{"S1810_001E"}},
		{"age", true, false, false, []string{"S1810_C02_014E", "S1810_C02_015E"}},
		{"sex", false, true, false, []string{"S1810_C02_020E"}},
		{"race", false, false, true, []string{"S1810_C02_022E"}},
		{"age and sex", true, true, false, []string{"S1810_C02_014E", "S1810_C02_015E", "S1810_C02_020E"}},
		{"all axes", true, true, true, []string{"S1810_C02_014E", "S1810_C02_015E", "S1810_C02_020E", "S1810_C02_022E"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.SelectVars(ctx, "S1810", "With a disability", tt.wantAge, tt.wantSex, tt.wantRace)
			if err != nil {
				t.Fatalf("SelectVars error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectVars = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectVars_Properties(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)

	codes, err := c.SelectVars(context.Background(), "S1810", "With a disability", true, true, true)
	if err != nil {
		t.Fatalf("SelectVars error: %v", err)
	}
	labels, _, _ := c.Labels(context.Background(), "S1810")

	seen := make(map[string]bool)
	for _, code := range codes {
		if !strings.HasSuffix(code, "E") {
			t.Errorf("code %s is not an estimate", code)
		}
		if seen[code] {
			t.Errorf("code %s returned twice", code)
		}
		seen[code] = true

		label := labels[code]
		if !strings.Contains(label, "With a disability") {
			t.Errorf("label for %s missing measure fragment: %q", code, label)
		}
		hasAxis := strings.Contains(label, ageMarker) ||
			strings.Contains(label, sexMarker) ||
			strings.Contains(label, "!!RACE") ||
			strings.Contains(label, "!!ETHNICITY")
		if !hasAxis {
			t.Errorf("label for %s has no requested axis marker: %q", code, label)
		}
	}
}

func TestSelectVars_NoMatchWithBreakdownsFallsBack(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)

	// Fragment matches nothing, yet breakdowns are requested: the selection
	// must degrade to the overall estimate rather than come back empty.
	got, err := c.SelectVars(context.Background(), "S1810", "No such measure", true, true, true)
	if err != nil {
		t.Fatalf("SelectVars error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"S1810_001E"}) {
		t.Errorf("SelectVars = %v, want fallback [S1810_001E]", got)
	}
}

func TestSelectVars_ExcludesMarginOfError(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)

	codes, _ := c.SelectVars(context.Background(), "S1810", "With a disability", true, true, true)
	for _, code := range codes {
		if strings.HasSuffix(code, "M") {
			t.Errorf("margin-of-error code %s should be excluded", code)
		}
	}
}

func TestCleanLabel(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{
			"age row",
			"Estimate!!With a disability!!Civilian noninstitutionalized population!!AGE!!Under 5 years",
			"Under 5 years",
		},
		{
			"sex row",
			"Estimate!!With a disability!!Civilian noninstitutionalized population!!SEX!!Male",
			"Male",
		},
		{
			"race row",
			"Estimate!!With a disability!!Civilian noninstitutionalized population!!RACE AND HISPANIC OR LATINO ORIGIN!!White alone",
			"White alone",
		},
		{
			"overall row keeps universe",
			"Estimate!!Total!!Civilian noninstitutionalized population",
			"Civilian noninstitutionalized population",
		},
		{"no delimiters", "Unemployment rate", "Unemployment rate"},
		{"empty", "", ""},
		{"only markers", "Estimate!!AGE", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanLabel(tt.label); got != tt.want {
				t.Errorf("CleanLabel(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestIndicatorCatalog(t *testing.T) {
	cat := Catalog()
	if len(cat) != 9 {
		t.Fatalf("catalog size = %d, want 9", len(cat))
	}

	names := make(map[string]bool)
	detailed := 0
	for _, ind := range cat {
		if names[ind.Name] {
			t.Errorf("duplicate indicator name %q", ind.Name)
		}
		names[ind.Name] = true
		if ind.Dataset != "subject" && ind.Dataset != "profile" {
			t.Errorf("indicator %q has unknown dataset %q", ind.Name, ind.Dataset)
		}
		if ind.Detailed() {
			detailed++
			if ind.Fragment == "" {
				t.Errorf("detailed indicator %q missing fragment", ind.Name)
			}
		}
	}
	if detailed != 4 {
		t.Errorf("detailed indicators = %d, want 4", detailed)
	}

	// Mutating the returned slice must not affect the catalog.
	cat[0].Name = "mutated"
	if fresh := Catalog(); fresh[0].Name == "mutated" {
		t.Error("Catalog should return a copy")
	}
}

func TestIndicatorShortName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Disability (%)", "Disability"},
		{"Median household income ($)", "Median household income"},
		{"Plain", "Plain"},
	}
	for _, tt := range tests {
		ind := Indicator{Name: tt.name}
		if got := ind.ShortName(); got != tt.want {
			t.Errorf("ShortName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("Median household income ($)"); !ok {
		t.Error("Lookup should find catalog indicator")
	}
	if _, ok := Lookup("Nonexistent"); ok {
		t.Error("Lookup should miss unknown indicator")
	}
}

func TestDefaultSelection(t *testing.T) {
	for _, name := range DefaultSelection {
		if _, ok := Lookup(name); !ok {
			t.Errorf("default selection %q not in catalog", name)
		}
	}
}
