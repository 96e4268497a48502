package census

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/piercedata/acsdash/pkg/cache"
	"github.com/piercedata/acsdash/pkg/errors"
	"github.com/piercedata/acsdash/pkg/observability"
	"github.com/piercedata/acsdash/pkg/table"
)

// httpTimeout bounds each individual API request. There is no run-level
// timeout and no retry: a slow or failing request fails the run.
const httpTimeout = 20 * time.Second

// DefaultBaseURL is the public Census API data root.
const DefaultBaseURL = "https://api.census.gov/data"

// Config holds the deployment-fixed constants for the ACS API: key, survey
// year, and the state/county FIPS identifiers the tool is scoped to.
type Config struct {
	BaseURL string // API root, DefaultBaseURL if empty
	APIKey  string
	Year    int
	State   string // state FIPS code, e.g. "53" (Washington)
	County  string // county FIPS code, e.g. "053" (Pierce)
}

// Client provides access to the ACS data and group-metadata endpoints.
// It owns the two process-lifetime caches: group metadata by group id, and
// raw responses by exact request URL.
//
// All methods are safe for concurrent use.
type Client struct {
	cfg       Config
	http      *http.Client
	responses cache.Cache
	cacheTTL  time.Duration
	logger    *log.Logger

	mu     sync.Mutex
	groups map[string]*groupMeta
}

// New creates a Client with the given response cache backend.
// A nil responses cache disables memoization; a nil logger uses the default.
func New(cfg Config, responses cache.Cache, cacheTTL time.Duration, logger *log.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if responses == nil {
		responses = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: httpTimeout},
		responses: responses,
		cacheTTL:  cacheTTL,
		logger:    logger,
		groups:    make(map[string]*groupMeta),
	}
}

// Config returns the client's configuration.
func (c *Client) Config() Config { return c.cfg }

// datasetURL builds a data-pull URL for the given dataset ("subject" or
// "profile"), comma-joined variable codes, and geography clause. The geo
// clause is pre-encoded by GeoClause and appended verbatim.
func (c *Client) datasetURL(dataset, codes, geo string) string {
	return fmt.Sprintf("%s/%d/acs/acs5/%s?get=NAME,%s&%s&key=%s",
		c.cfg.BaseURL, c.cfg.Year, dataset, codes, geo, c.cfg.APIKey)
}

// groupURL builds the metadata URL for a subject-table group.
func (c *Client) groupURL(groupID string) string {
	return fmt.Sprintf("%s/%d/acs/acs5/subject/groups/%s.json", c.cfg.BaseURL, c.cfg.Year, groupID)
}

// doGet issues one GET request and returns the response body.
// Non-200 statuses and transport failures map to coded errors.
func (c *Client) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build request")
	}

	host, path := requestTarget(rawURL)
	observability.HTTP().OnRequest(ctx, http.MethodGet, host, path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, host, path, err)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "request failed")
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, http.MethodGet, host, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New(errors.ErrCodeNotFound, "resource not found: %s", path)
	default:
		return nil, errors.New(errors.ErrCodeFetch, "unexpected status %d from %s", resp.StatusCode, host)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read response body")
	}
	return body, nil
}

// fetchTable returns the parsed table for rawURL, consulting the response
// cache first. The cache key is the exact URL string: any parameter change,
// including a different breakdown selection, is a distinct entry, which is
// correct because the URL fully encodes the query. The second return value
// reports whether the response came from cache.
func (c *Client) fetchTable(ctx context.Context, rawURL string, refresh bool) (*table.Table, bool, error) {
	if !refresh {
		if body, hit, err := c.responses.Get(ctx, rawURL); err == nil && hit {
			tbl, perr := table.Parse(body)
			if perr == nil {
				observability.Cache().OnCacheHit(ctx, "response")
				return tbl.DropDuplicateColumns(), true, nil
			}
			// Corrupt cached body: drop it and refetch. Counts as a miss so
			// that hits and misses together account for every lookup.
			_ = c.responses.Delete(ctx, rawURL)
			observability.Cache().OnCacheMiss(ctx, "response")
		} else {
			observability.Cache().OnCacheMiss(ctx, "response")
		}
	}

	body, err := c.doGet(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}
	tbl, err := table.Parse(body)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeFetch, err, "malformed data response")
	}

	if err := c.responses.Set(ctx, rawURL, body, c.cacheTTL); err != nil {
		c.logger.Warn("response cache write failed", "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "response", len(body))
	}
	return tbl.DropDuplicateColumns(), false, nil
}

func requestTarget(rawURL string) (host, path string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, ""
	}
	return u.Host, u.Path
}
