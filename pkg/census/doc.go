// Package census implements the client for the U.S. Census Bureau ACS 5-year
// data API.
//
// The package covers the full indicator-resolution and data-assembly path:
// geography clause construction, per-group variable metadata with
// process-lifetime caching, breakdown-aware variable selection, and the data
// pulls themselves with URL-keyed response memoization.
//
// A [Client] holds configuration and the two caches; a [Run] scopes one pull
// session and records every request URL it issues, in order, for display and
// export. Failures surface as coded errors from pkg/errors: validation errors
// before any network call, FETCH_ERROR/METADATA_ERROR after. The client never
// retries and never assembles partial results.
package census
