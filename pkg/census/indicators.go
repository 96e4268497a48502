package census

import "strings"

// Indicator is a named ACS statistical measure. Simple indicators carry a
// direct variable code and dataset; detailed-capable indicators additionally
// name the subject-table group used to expand the measure along demographic
// axes.
type Indicator struct {
	Name     string // unique display name
	Code     string // variable code for the simple pull
	Dataset  string // "profile" or "subject"
	Group    string // subject-table group id, empty if not detailed-capable
	Fragment string // label fragment isolating the measure within the group
	Universe string // universe keyword, informational
}

// Detailed reports whether the indicator supports demographic breakdowns.
func (i Indicator) Detailed() bool { return i.Group != "" }

// ShortName returns the display name with any trailing unit suffix removed,
// e.g. "Disability (%)" -> "Disability". Used as the column prefix for
// detailed pulls.
func (i Indicator) ShortName() string {
	if idx := strings.Index(i.Name, " ("); idx >= 0 {
		return i.Name[:idx]
	}
	return i.Name
}

// catalog is the static indicator set, defined at process start and never
// mutated. Order is the display order.
var catalog = []Indicator{
	{Name: "HS diploma 25+ (%)", Code: "DP02_0062PE", Dataset: "profile"},
	{Name: "Disability (%)", Code: "S1810_C02_001E", Dataset: "subject",
		Group: "S1810", Fragment: "With a disability", Universe: "civilian"},
	{Name: "Speak English < very well (%)", Code: "DP02_0110PE", Dataset: "profile"},
	{Name: "Poverty <100% FPL (%)", Code: "S1701_C03_001E", Dataset: "subject",
		Group: "S1701", Fragment: "Below poverty level", Universe: "population"},
	{Name: "Median household income ($)", Code: "S1901_C01_012E", Dataset: "subject"},
	{Name: "Housing cost ≥30% income (%)", Code: "DP04_0138PE", Dataset: "profile"},
	{Name: "Unemployment rate 16+ (%)", Code: "S2301_C04_001E", Dataset: "subject",
		Group: "S2301", Fragment: "Unemployment rate", Universe: "population"},
	{Name: "Households with no vehicle (%)", Code: "DP04_0058PE", Dataset: "profile"},
	{Name: "Insurance coverage (%)", Code: "S2701_C03_001E", Dataset: "subject",
		Group: "S2701", Fragment: "No health insurance coverage", Universe: "civilian"},
}

// DefaultSelection names the indicators preselected in the dashboard.
var DefaultSelection = []string{
	"HS diploma 25+ (%)",
	"Median household income ($)",
	"Unemployment rate 16+ (%)",
}

// Catalog returns the indicator set in display order.
func Catalog() []Indicator {
	out := make([]Indicator, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds an indicator by display name.
func Lookup(name string) (Indicator, bool) {
	for _, ind := range catalog {
		if ind.Name == name {
			return ind, true
		}
	}
	return Indicator{}, false
}
