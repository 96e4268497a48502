package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/piercedata/acsdash/pkg/census"
	"github.com/piercedata/acsdash/pkg/errors"
	"github.com/piercedata/acsdash/pkg/history"
)

const disabilityMeta = `{"variables":{
	"S1810_C02_001E":{"label":"Estimate!!With a disability!!Civilian noninstitutionalized population"},
	"S1810_C02_014E":{"label":"Estimate!!With a disability!!Civilian noninstitutionalized population!!AGE!!Under 5 years"},
	"S1810_C02_015E":{"label":"Estimate!!With a disability!!Civilian noninstitutionalized population!!AGE!!5 to 17 years"}
}}`

// testServer fakes group metadata and data endpoints. Data responses echo the
// requested variable codes as columns for a single Pierce County row.
type testServer struct {
	*httptest.Server
	requests int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.requests, 1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/2023/acs/acs5/subject/groups/"):
			if strings.HasSuffix(r.URL.Path, "/S1810.json") {
				fmt.Fprint(w, disabilityMeta)
				return
			}
			http.NotFound(w, r)
		case r.URL.Path == "/2023/acs/acs5/subject" || r.URL.Path == "/2023/acs/acs5/profile":
			codes := strings.Split(r.URL.Query().Get("get"), ",")
			header := make([]string, 0, len(codes)+2)
			row := make([]string, 0, len(codes)+2)
			for _, c := range codes {
				header = append(header, fmt.Sprintf("%q", c))
				if c == "NAME" {
					row = append(row, `"Pierce County, Washington"`)
				} else {
					row = append(row, `"42"`)
				}
			}
			header = append(header, `"state"`, `"county"`)
			row = append(row, `"53"`, `"053"`)
			fmt.Fprintf(w, "[[%s],[%s]]", strings.Join(header, ","), strings.Join(row, ","))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestRunner(ts *testServer, store history.Store) *Runner {
	cfg := census.Config{
		BaseURL: ts.URL,
		APIKey:  "testkey",
		Year:    2023,
		State:   "53",
		County:  "053",
	}
	return NewRunner(census.New(cfg, nil, 0, nil), nil, store)
}

// memStore is an in-memory history.Store for asserting on recorded runs.
type memStore struct {
	records []history.Record
	saveErr error
}

func (m *memStore) Save(_ context.Context, rec *history.Record) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) List(context.Context) ([]history.Record, error) { return m.records, nil }

func (m *memStore) Get(_ context.Context, id string) (*history.Record, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, history.ErrNotFound
}

func (m *memStore) Close() error { return nil }

func TestExecute_SingleIndicatorCounty(t *testing.T) {
	ts := newTestServer(t)
	r := newTestRunner(ts, nil)

	res, err := r.Execute(context.Background(), Options{
		Level:      census.LevelCounty,
		Indicators: []string{"Median household income ($)"},
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if len(res.URLs) != 1 {
		t.Fatalf("URL log = %d entries, want 1", len(res.URLs))
	}
	want := ts.URL + "/2023/acs/acs5/subject?get=NAME,S1901_C01_012E&for=county:053&in=state:53&key=testkey"
	if res.URLs[0] != want {
		t.Errorf("logged URL = %s\nwant %s", res.URLs[0], want)
	}

	if len(res.Table.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(res.Table.Rows))
	}
	if res.Table.ColumnIndex("Median household income ($) (S1901_C01_012E)") < 0 {
		t.Errorf("missing display column, columns = %v", res.Table.Columns)
	}
	if res.RunID == "" {
		t.Error("run id should be set")
	}
	if res.Stats.Requests != 1 || res.Stats.CacheHits != 0 {
		t.Errorf("stats = (%d, %d), want (1, 0)",
			res.Stats.Requests, res.Stats.CacheHits)
	}
}

func TestExecute_DetailedWithAge(t *testing.T) {
	ts := newTestServer(t)
	r := newTestRunner(ts, nil)

	res, err := r.Execute(context.Background(), Options{
		Level:      census.LevelCounty,
		Indicators: []string{"Disability (%)"},
		Age:        true,
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	var prefixed int
	for _, col := range res.Table.Columns {
		if strings.HasPrefix(col, "Disability – ") {
			prefixed++
		}
	}
	if prefixed != 2 {
		t.Errorf("prefixed columns = %d, want 2, columns = %v", prefixed, res.Table.Columns)
	}
	if res.Table.ColumnIndex("Disability – Under 5 years") < 0 {
		t.Errorf("missing age column, columns = %v", res.Table.Columns)
	}
}

func TestExecute_DetailedWithoutBreakdownStaysSimple(t *testing.T) {
	ts := newTestServer(t)
	r := newTestRunner(ts, nil)

	// No axis flags: the detailed-capable indicator takes the simple path
	// with its direct variable code.
	res, err := r.Execute(context.Background(), Options{
		Level:      census.LevelCounty,
		Indicators: []string{"Disability (%)"},
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(res.URLs) != 1 || !strings.Contains(res.URLs[0], "get=NAME,S1810_C02_001E&") {
		t.Errorf("URLs = %v, want one simple S1810_C02_001E pull", res.URLs)
	}
	if res.Table.ColumnIndex("Disability (%) (S1810_C02_001E)") < 0 {
		t.Errorf("missing display column, columns = %v", res.Table.Columns)
	}
}

func TestExecute_JoinsIndicators(t *testing.T) {
	ts := newTestServer(t)
	r := newTestRunner(ts, nil)

	res, err := r.Execute(context.Background(), Options{
		Level: census.LevelCounty,
		Indicators: []string{
			"HS diploma 25+ (%)",
			"Median household income ($)",
		},
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if len(res.URLs) != 2 {
		t.Fatalf("URL log = %d entries, want 2", len(res.URLs))
	}
	if len(res.Table.Rows) != 1 {
		t.Errorf("rows = %d, want 1 (joined on geography)", len(res.Table.Rows))
	}
	for _, col := range []string{
		"NAME",
		"HS diploma 25+ (%) (DP02_0062PE)",
		"Median household income ($) (S1901_C01_012E)",
	} {
		if res.Table.ColumnIndex(col) < 0 {
			t.Errorf("missing column %q, columns = %v", col, res.Table.Columns)
		}
	}
	// The shared NAME column must appear exactly once.
	var names int
	for _, col := range res.Table.Columns {
		if col == "NAME" {
			names++
		}
	}
	if names != 1 {
		t.Errorf("NAME columns = %d, want 1", names)
	}
}

func TestExecute_DefaultSelection(t *testing.T) {
	ts := newTestServer(t)
	r := newTestRunner(ts, nil)

	res, err := r.Execute(context.Background(), Options{Level: census.LevelCounty})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if got := len(res.URLs); got != len(census.DefaultSelection) {
		t.Errorf("URL log = %d entries, want %d", got, len(census.DefaultSelection))
	}
}

func TestExecute_UnknownIndicator(t *testing.T) {
	ts := newTestServer(t)
	r := newTestRunner(ts, nil)

	_, err := r.Execute(context.Background(), Options{
		Level:      census.LevelCounty,
		Indicators: []string{"Lottery winners (%)"},
	})
	if err == nil {
		t.Fatal("unknown indicator should fail")
	}
	if !errors.Is(err, errors.ErrCodeInvalidIndicator) {
		t.Errorf("error code = %s, want INVALID_INDICATOR", errors.GetCode(err))
	}
	if got := atomic.LoadInt32(&ts.requests); got != 0 {
		t.Errorf("requests = %d, want 0 (validation failures issue no requests)", got)
	}
}

func TestExecute_InvalidZCTAs(t *testing.T) {
	ts := newTestServer(t)
	r := newTestRunner(ts, nil)

	_, err := r.Execute(context.Background(), Options{
		Level: census.LevelZCTA,
		ZCTAs: "98402,abc",
	})
	if err == nil {
		t.Fatal("invalid ZCTA list should fail")
	}
	if !errors.Is(err, errors.ErrCodeInvalidGeography) {
		t.Errorf("error code = %s, want INVALID_GEOGRAPHY", errors.GetCode(err))
	}
	if got := atomic.LoadInt32(&ts.requests); got != 0 {
		t.Errorf("requests = %d, want 0", got)
	}
}

func TestExecute_RecordsHistory(t *testing.T) {
	ts := newTestServer(t)
	store := &memStore{}
	r := newTestRunner(ts, store)

	res, err := r.Execute(context.Background(), Options{
		Level:      census.LevelCounty,
		Indicators: []string{"Median household income ($)"},
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if len(store.records) != 1 {
		t.Fatalf("recorded runs = %d, want 1", len(store.records))
	}
	rec := store.records[0]
	if rec.ID != res.RunID {
		t.Errorf("record id = %s, want %s", rec.ID, res.RunID)
	}
	if rec.Rows != 1 || len(rec.URLs) != 1 {
		t.Errorf("record rows = %d, urls = %d, want 1 and 1", rec.Rows, len(rec.URLs))
	}
	if rec.Level != "county" {
		t.Errorf("record level = %s, want county", rec.Level)
	}
}

func TestExecute_HistoryFailureIsNonFatal(t *testing.T) {
	ts := newTestServer(t)
	store := &memStore{saveErr: fmt.Errorf("disk full")}
	r := newTestRunner(ts, store)

	_, err := r.Execute(context.Background(), Options{
		Level:      census.LevelCounty,
		Indicators: []string{"Median household income ($)"},
	})
	if err != nil {
		t.Fatalf("history failure must not fail the run: %v", err)
	}
}

func TestExecute_FetchErrorNamesIndicator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := census.Config{BaseURL: srv.URL, APIKey: "testkey", Year: 2023, State: "53", County: "053"}
	r := NewRunner(census.New(cfg, nil, 0, nil), nil, nil)

	_, err := r.Execute(context.Background(), Options{
		Level:      census.LevelCounty,
		Indicators: []string{"Median household income ($)"},
	})
	if err == nil {
		t.Fatal("server error should fail the run")
	}
	if !errors.Is(err, errors.ErrCodeFetch) {
		t.Errorf("error code = %s, want FETCH_ERROR", errors.GetCode(err))
	}
	if !strings.Contains(err.Error(), "Median household income") {
		t.Errorf("error should name the failing indicator: %v", err)
	}
}
