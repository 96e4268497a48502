package census

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/piercedata/acsdash/pkg/cache"
	"github.com/piercedata/acsdash/pkg/errors"
	"github.com/piercedata/acsdash/pkg/observability"
)

// disabilityMeta is a trimmed S1810 group-metadata response covering the
// overall, age, sex, and race rows plus non-estimate columns.
const disabilityMeta = `{"variables":{
	"S1810_C01_001E":{"label":"Estimate!!Total!!Civilian noninstitutionalized population"},
	"S1810_C02_001E":{"label":"Estimate!!With a disability!!Civilian noninstitutionalized population"},
	"S1810_C02_001M":{"label":"Margin of Error!!With a disability!!Civilian noninstitutionalized population"},
	"S1810_C02_014E":{"label":"Estimate!!With a disability!!Civilian noninstitutionalized population!!AGE!!Under 5 years"},
	"S1810_C02_015E":{"label":"Estimate!!With a disability!!Civilian noninstitutionalized population!!AGE!!5 to 17 years"},
	"S1810_C02_020E":{"label":"Estimate!!With a disability!!Civilian noninstitutionalized population!!SEX!!Male"},
	"S1810_C02_022E":{"label":"Estimate!!With a disability!!Civilian noninstitutionalized population!!RACE AND HISPANIC OR LATINO ORIGIN!!White alone"}
}}`

// testServer fakes the two Census API endpoint families: group metadata and
// data pulls. Data responses echo the requested variable codes as columns.
type testServer struct {
	*httptest.Server
	metaRequests int32
	dataRequests int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/2023/acs/acs5/subject/groups/"):
			atomic.AddInt32(&ts.metaRequests, 1)
			if strings.HasSuffix(r.URL.Path, "/S1810.json") {
				fmt.Fprint(w, disabilityMeta)
				return
			}
			http.NotFound(w, r)
		case r.URL.Path == "/2023/acs/acs5/subject" || r.URL.Path == "/2023/acs/acs5/profile":
			atomic.AddInt32(&ts.dataRequests, 1)
			codes := strings.Split(r.URL.Query().Get("get"), ",")
			header := make([]string, 0, len(codes)+2)
			row := make([]string, 0, len(codes)+2)
			for _, c := range codes {
				header = append(header, c)
				if c == "NAME" {
					row = append(row, "Pierce County, Washington")
				} else {
					row = append(row, "42")
				}
			}
			header = append(header, "state", "county")
			row = append(row, "53", "053")
			fmt.Fprintf(w, `[%s,%s]`, jsonRow(header), jsonRow(row))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func jsonRow(cells []string) string {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func newTestClient(ts *testServer, responses cache.Cache) *Client {
	cfg := testConfig()
	cfg.BaseURL = ts.URL
	return New(cfg, responses, 0, nil)
}

func TestLabels_FetchesOnceAndCaches(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)
	ctx := context.Background()

	labels, order, err := c.Labels(ctx, "S1810")
	if err != nil {
		t.Fatalf("Labels error: %v", err)
	}
	if len(labels) != 7 || len(order) != 7 {
		t.Fatalf("labels = %d, order = %d, want 7", len(labels), len(order))
	}
	if order[0] != "S1810_C01_001E" {
		t.Errorf("order[0] = %s, want S1810_C01_001E (sorted)", order[0])
	}

	// Second call must not touch the network.
	again, _, err := c.Labels(ctx, "S1810")
	if err != nil {
		t.Fatalf("second Labels error: %v", err)
	}
	if got := atomic.LoadInt32(&ts.metaRequests); got != 1 {
		t.Errorf("metadata requests = %d, want 1", got)
	}
	for code, label := range labels {
		if again[code] != label {
			t.Errorf("cached label mismatch for %s", code)
		}
	}
}

func TestLabels_UnknownGroup(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)

	_, _, err := c.Labels(context.Background(), "S9999")
	if err == nil {
		t.Fatal("unknown group should fail")
	}
	if !errors.Is(err, errors.ErrCodeMetadata) {
		t.Errorf("error code = %s, want METADATA_ERROR", errors.GetCode(err))
	}
}

func TestLabels_InvalidGroupID(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)

	_, _, err := c.Labels(context.Background(), "s1810; DROP")
	if err == nil {
		t.Fatal("invalid group id should fail before any request")
	}
	if got := atomic.LoadInt32(&ts.metaRequests); got != 0 {
		t.Errorf("metadata requests = %d, want 0", got)
	}
}

func TestFetchSimple(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)
	run := c.NewRun(false)

	geo, _ := c.GeoClause(LevelCounty, "")
	tbl, err := run.FetchSimple(context.Background(), "S1901_C01_012E", "subject", geo)
	if err != nil {
		t.Fatalf("FetchSimple error: %v", err)
	}

	if got := tbl.ColumnIndex("S1901_C01_012E"); got < 0 {
		t.Errorf("missing variable column, columns = %v", tbl.Columns)
	}
	if len(tbl.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(tbl.Rows))
	}

	urls := run.URLs()
	if len(urls) != 1 {
		t.Fatalf("URL log = %d entries, want 1", len(urls))
	}
	want := ts.URL + "/2023/acs/acs5/subject?get=NAME,S1901_C01_012E&for=county:053&in=state:53&key=testkey"
	if urls[0] != want {
		t.Errorf("logged URL = %s\nwant %s", urls[0], want)
	}
}

func TestFetchSimple_ResponseMemoization(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, cache.NewMemoryCache(16))
	ctx := context.Background()

	geo, _ := c.GeoClause(LevelCounty, "")
	run := c.NewRun(false)
	if _, err := run.FetchSimple(ctx, "DP02_0062PE", "profile", geo); err != nil {
		t.Fatalf("first fetch error: %v", err)
	}
	if _, err := run.FetchSimple(ctx, "DP02_0062PE", "profile", geo); err != nil {
		t.Fatalf("second fetch error: %v", err)
	}

	if got := atomic.LoadInt32(&ts.dataRequests); got != 1 {
		t.Errorf("data requests = %d, want 1 (second request served from cache)", got)
	}
	// Both requests still appear in the URL log.
	if got := len(run.URLs()); got != 2 {
		t.Errorf("URL log = %d entries, want 2", got)
	}
	if requests, hits := run.Stats(); requests != 2 || hits != 1 {
		t.Errorf("stats = (%d, %d), want (2, 1)", requests, hits)
	}
}

type countingCacheHooks struct {
	observability.NoopCacheHooks
	hits   int32
	misses int32
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string)  { atomic.AddInt32(&h.hits, 1) }
func (h *countingCacheHooks) OnCacheMiss(context.Context, string) { atomic.AddInt32(&h.misses, 1) }

func TestFetchSimple_CorruptCacheEntryCountsAsMiss(t *testing.T) {
	ts := newTestServer(t)
	responses := cache.NewMemoryCache(16)
	c := newTestClient(ts, responses)
	ctx := context.Background()

	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	geo, _ := c.GeoClause(LevelCounty, "")
	seed := c.NewRun(false)
	if _, err := seed.FetchSimple(ctx, "DP02_0062PE", "profile", geo); err != nil {
		t.Fatalf("seed fetch error: %v", err)
	}

	// Overwrite the cached response with a body that cannot be parsed.
	key := seed.URLs()[0]
	if err := responses.Set(ctx, key, []byte(`<html>maintenance</html>`), 0); err != nil {
		t.Fatalf("corrupting cache entry: %v", err)
	}

	tbl, err := c.NewRun(false).FetchSimple(ctx, "DP02_0062PE", "profile", geo)
	if err != nil {
		t.Fatalf("fetch after corruption error: %v", err)
	}
	if tbl.ColumnIndex("DP02_0062PE") < 0 {
		t.Errorf("missing variable column, columns = %v", tbl.Columns)
	}
	if got := atomic.LoadInt32(&ts.dataRequests); got != 2 {
		t.Errorf("data requests = %d, want 2 (corrupt entry must be refetched)", got)
	}

	// Two lookups happened; both were misses, so hits and misses add up.
	hits, misses := atomic.LoadInt32(&hooks.hits), atomic.LoadInt32(&hooks.misses)
	if hits != 0 || misses != 2 {
		t.Errorf("cache events = %d hits, %d misses, want 0 and 2", hits, misses)
	}
}

func TestFetchSimple_RefreshBypassesCache(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, cache.NewMemoryCache(16))
	ctx := context.Background()

	geo, _ := c.GeoClause(LevelCounty, "")
	if _, err := c.NewRun(false).FetchSimple(ctx, "DP02_0062PE", "profile", geo); err != nil {
		t.Fatalf("seed fetch error: %v", err)
	}
	if _, err := c.NewRun(true).FetchSimple(ctx, "DP02_0062PE", "profile", geo); err != nil {
		t.Fatalf("refresh fetch error: %v", err)
	}

	if got := atomic.LoadInt32(&ts.dataRequests); got != 2 {
		t.Errorf("data requests = %d, want 2 (refresh must bypass cache)", got)
	}
}

func TestFetchDetailed(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)

	ind, ok := Lookup("Disability (%)")
	if !ok {
		t.Fatal("catalog missing Disability (%)")
	}

	geo, _ := c.GeoClause(LevelCounty, "")
	run := c.NewRun(false)
	tbl, err := run.FetchDetailed(context.Background(), ind, geo, true, false, false)
	if err != nil {
		t.Fatalf("FetchDetailed error: %v", err)
	}

	urls := run.URLs()
	if len(urls) != 1 {
		t.Fatalf("URL log = %d entries, want 1", len(urls))
	}
	if want := "get=NAME,S1810_C02_014E,S1810_C02_015E&"; !strings.Contains(urls[0], want) {
		t.Errorf("URL = %s\nshould contain %s", urls[0], want)
	}

	// Variable columns renamed with the indicator's short name prefix.
	wantCols := []string{
		"Disability – Under 5 years",
		"Disability – 5 to 17 years",
	}
	for _, col := range wantCols {
		if tbl.ColumnIndex(col) < 0 {
			t.Errorf("missing column %q, columns = %v", col, tbl.Columns)
		}
	}
	for _, col := range tbl.Columns {
		if strings.HasPrefix(col, "S1810_") {
			t.Errorf("raw variable column %q should have been renamed", col)
		}
	}
}

func TestFetchDetailed_FallbackCode(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)

	ind, _ := Lookup("Disability (%)")
	geo, _ := c.GeoClause(LevelCounty, "")
	run := c.NewRun(false)

	// No breakdowns: selector degrades to the overall estimate code.
	tbl, err := run.FetchDetailed(context.Background(), ind, geo, false, false, false)
	if err != nil {
		t.Fatalf("FetchDetailed error: %v", err)
	}
	if want := "get=NAME,S1810_001E&"; !strings.Contains(run.URLs()[0], want) {
		t.Errorf("URL = %s\nshould contain %s", run.URLs()[0], want)
	}
	// The fallback code has no metadata label, so the column keeps the code.
	if tbl.ColumnIndex("Disability – S1810_001E") < 0 {
		t.Errorf("missing fallback column, columns = %v", tbl.Columns)
	}
}

func TestFetchDetailed_NotDetailed(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, nil)

	ind, _ := Lookup("Median household income ($)")
	run := c.NewRun(false)
	_, err := run.FetchDetailed(context.Background(), ind, "for=county:053&in=state:53", false, false, false)
	if err == nil {
		t.Fatal("non-detailed indicator should fail")
	}
	if !errors.Is(err, errors.ErrCodeInvalidIndicator) {
		t.Errorf("error code = %s, want INVALID_INDICATOR", errors.GetCode(err))
	}
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.BaseURL = srv.URL
	c := New(cfg, nil, 0, nil)
	run := c.NewRun(false)

	_, err := run.FetchSimple(context.Background(), "DP02_0062PE", "profile", "for=county:053&in=state:53")
	if err == nil {
		t.Fatal("5xx response should fail")
	}
	if !errors.Is(err, errors.ErrCodeFetch) {
		t.Errorf("error code = %s, want FETCH_ERROR", errors.GetCode(err))
	}
	// The failed request is still logged.
	if len(run.URLs()) != 1 {
		t.Errorf("URL log = %d entries, want 1", len(run.URLs()))
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.BaseURL = srv.URL
	c := New(cfg, nil, 0, nil)

	_, err := c.NewRun(false).FetchSimple(context.Background(), "DP02_0062PE", "profile", "for=county:053&in=state:53")
	if err == nil {
		t.Fatal("malformed body should fail")
	}
	if !errors.Is(err, errors.ErrCodeFetch) {
		t.Errorf("error code = %s, want FETCH_ERROR", errors.GetCode(err))
	}
}
