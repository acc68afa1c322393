package electricitymaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/hkoenig/gridcarbon/internal/cache"
)

// Location is the process-wide upstream addressing mode, fixed at startup.
// Exactly one scheme applies: a zone code, or explicit coordinates when
// UseCoords is set.
type Location struct {
	UseCoords bool
	Zone      string
	Lat       float64
	Lon       float64
}

// UpstreamError reports a non-success response from the Electricity Maps API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded %d: %s", e.Status, e.Body)
}

// ParseError reports an upstream payload that could not be decoded as JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Client is the single choke point for all upstream calls. It owns the
// cache-or-fetch decision: every request is answered from the TTL cache
// when possible and written back to it after a successful fetch.
type Client struct {
	baseURL    string
	token      string
	loc        Location
	httpClient *http.Client
	store      *cache.Store
	log        *logrus.Logger

	// group is non-nil only when single-flight dedup is enabled; concurrent
	// misses on one key then share a single upstream call.
	group *singleflight.Group
}

// NewClient creates a Client against baseURL authenticating with token.
func NewClient(baseURL, token string, loc Location, httpClient *http.Client, store *cache.Store, log *logrus.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		loc:        loc,
		httpClient: httpClient,
		store:      store,
		log:        log,
	}
}

// EnableSingleFlight makes concurrent cache misses for the same key share
// one in-flight upstream call. Call before serving traffic.
func (c *Client) EnableSingleFlight() {
	c.group = &singleflight.Group{}
}

// BuildQuery returns the canonical query string for the configured location
// plus any extra parameters. Extras override location keys (last write
// wins). url.Values.Encode serializes keys in sorted order, so the result
// is stable regardless of the insertion order of extras; cache keys derived
// from it are therefore stable for the same logical request.
func (c *Client) BuildQuery(extra map[string]string) string {
	values := url.Values{}
	if c.loc.UseCoords {
		values.Set("lat", strconv.FormatFloat(c.loc.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(c.loc.Lon, 'f', -1, 64))
	} else {
		values.Set("zone", c.loc.Zone)
	}
	for k, v := range extra {
		values.Set(k, v)
	}
	return values.Encode()
}

// Fetch resolves path+extra against the cache and, on a miss, performs a
// single GET against the upstream, decodes the JSON payload into T and
// stores it under the request fingerprint. An upstream status >= 400
// surfaces as *UpstreamError carrying the status and raw body; no retry is
// attempted and nothing is cached on failure.
func Fetch[T any](ctx context.Context, c *Client, path string, extra map[string]string) (T, error) {
	var zero T

	key := path + "?" + c.BuildQuery(extra)

	if v, ok := c.store.Get(key); ok {
		if typed, ok := v.(T); ok {
			c.log.WithField("key", key).Debug("cache hit")
			return typed, nil
		}
	}
	c.log.WithField("key", key).Debug("cache miss")

	fetch := func() (any, error) {
		return fetchUpstream[T](ctx, c, key, path)
	}

	var (
		raw any
		err error
	)
	if c.group != nil {
		raw, err, _ = c.group.Do(key, fetch)
	} else {
		raw, err = fetch()
	}
	if err != nil {
		return zero, err
	}

	typed, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected payload type for %s", path)
	}
	return typed, nil
}

func fetchUpstream[T any](ctx context.Context, c *Client, key, path string) (T, error) {
	var zero T

	u := c.baseURL + key
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return zero, fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("auth-token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return zero, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, &ParseError{Path: path, Err: err}
	}

	c.store.Set(key, out)
	return out, nil
}
