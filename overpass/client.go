/*
Copyright © 2026 the cellmap authors.
This file is part of cellmap.

cellmap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cellmap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cellmap.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package overpass downloads OpenStreetMap features from the Overpass API
// and city boundaries from Nominatim.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cellmap/cellmap/internal/hash"
	"github.com/cenkalti/backoff/v4"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Default service endpoints.
const (
	DefaultOverpassURL  = "https://overpass-api.de/api/interpreter"
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"
)

// Client downloads data from the Overpass and Nominatim APIs.
type Client struct {
	// OverpassURL is the Overpass interpreter endpoint.
	OverpassURL string

	// NominatimURL is the Nominatim search endpoint.
	NominatimURL string

	// HTTPClient is used for all requests.
	HTTPClient *http.Client

	// UserAgent is sent with every request. Nominatim requires a
	// user agent that identifies the application.
	UserAgent string

	// CacheDir is a directory where responses are stored and reused.
	// If empty, nothing is cached.
	CacheDir string

	// Timeout is the server-side Overpass query timeout in seconds.
	Timeout int

	// MaxRetries is the maximum number of times a failed request is retried.
	MaxRetries uint64

	// RetryInterval is the initial interval between retries.
	RetryInterval time.Duration

	// Concurrency is the maximum number of layers fetched at once by
	// FetchAll.
	Concurrency int

	// Log receives progress messages. If nil, logrus.StandardLogger() is used.
	Log logrus.FieldLogger
}

// NewClient returns a client with default settings.
func NewClient() *Client {
	return &Client{
		OverpassURL:   DefaultOverpassURL,
		NominatimURL:  DefaultNominatimURL,
		HTTPClient:    &http.Client{Timeout: 10 * time.Minute},
		UserAgent:     "cellmap",
		Timeout:       DefaultTimeout,
		MaxRetries:    5,
		RetryInterval: 5 * time.Second,
		Concurrency:   2,
	}
}

func (c *Client) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// Fetch runs query on the Overpass API and returns the JSON response.
// Requests that fail because of network errors, rate limiting, or server
// errors are retried with exponential backoff.
func (c *Client) Fetch(ctx context.Context, query string) ([]byte, error) {
	newReq := func() (*http.Request, error) {
		form := url.Values{"data": {query}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.OverpassURL,
			strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}
	b, err := c.do(ctx, hash.Key(c.OverpassURL, query), newReq, checkElements)
	if err != nil {
		return nil, fmt.Errorf("overpass: fetching query: %v", err)
	}
	return b, nil
}

// decodeElements decodes an Overpass JSON response. Overpass reports
// runtime errors such as timeouts in a remark next to an empty element list,
// which osm.OSM does not carry.
func decodeElements(b []byte) (*osm.OSM, error) {
	o := new(osm.OSM)
	if err := json.Unmarshal(b, o); err != nil {
		return nil, fmt.Errorf("invalid response: %v", err)
	}
	if len(o.Nodes)+len(o.Ways)+len(o.Relations) == 0 {
		var r struct {
			Remark string `json:"remark"`
		}
		if json.Unmarshal(b, &r) == nil && r.Remark != "" {
			return nil, fmt.Errorf("empty response: %s", r.Remark)
		}
	}
	return o, nil
}

func checkElements(b []byte) error {
	_, err := decodeElements(b)
	return err
}

// Boundary returns the boundary of place as a GeoJSON FeatureCollection
// with a single feature, as returned by Nominatim.
func (c *Client) Boundary(ctx context.Context, place string) ([]byte, error) {
	newReq := func() (*http.Request, error) {
		q := url.Values{
			"q":               {place},
			"format":          {"geojson"},
			"polygon_geojson": {"1"},
			"limit":           {"1"},
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, c.NominatimURL+"?"+q.Encode(), nil)
	}
	check := func(b []byte) error {
		fc, err := geojson.UnmarshalFeatureCollection(b)
		if err != nil {
			return fmt.Errorf("invalid response: %v", err)
		}
		if len(fc.Features) == 0 {
			return fmt.Errorf("no boundary found")
		}
		return nil
	}
	b, err := c.do(ctx, hash.Key(c.NominatimURL, place), newReq, check)
	if err != nil {
		return nil, fmt.Errorf("overpass: fetching boundary of %q: %v", place, err)
	}
	return b, nil
}

// statusError is returned for unsuccessful HTTP responses.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// do performs the request created by newReq, retrying when appropriate,
// checks the response body, and caches it under key.
func (c *Client) do(ctx context.Context, key string, newReq func() (*http.Request, error), check func([]byte) error) ([]byte, error) {
	if b, ok := c.cached(key); ok {
		c.log().WithField("key", key).Debug("using cached response")
		return b, nil
	}
	var body []byte
	op := func() error {
		req, err := newReq()
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.UserAgent)
		resp, err := c.httpClient().Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			err := &statusError{code: resp.StatusCode, body: truncate(string(b), 200)}
			if retryable(resp.StatusCode) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := check(b); err != nil {
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}
	notify := func(err error, d time.Duration) {
		c.log().WithFields(logrus.Fields{
			"error": err,
			"wait":  d,
		}).Warn("request failed; retrying")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(c.backOff(), ctx), notify); err != nil {
		return nil, err
	}
	c.store(key, body)
	return body, nil
}

func (c *Client) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.RetryInterval > 0 {
		b.InitialInterval = c.RetryInterval
	}
	return backoff.WithMaxRetries(b, c.MaxRetries)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (c *Client) cachePath(key string) string {
	return filepath.Join(os.ExpandEnv(c.CacheDir), key+".json")
}

func (c *Client) cached(key string) ([]byte, bool) {
	if c.CacheDir == "" {
		return nil, false
	}
	b, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *Client) store(key string, b []byte) {
	if c.CacheDir == "" {
		return
	}
	if err := os.MkdirAll(os.ExpandEnv(c.CacheDir), os.ModePerm); err != nil {
		c.log().WithError(err).Warn("creating cache directory")
		return
	}
	if err := os.WriteFile(c.cachePath(key), b, 0644); err != nil {
		c.log().WithError(err).Warn("writing cache file")
	}
}

// LayerFileName returns the name of the file the features of layer l are
// written to by FetchAll.
func LayerFileName(l Layer) string {
	return string(l) + "_features.json"
}

// BoundaryFileName is the name of the file the boundary is written to by
// FetchAll.
const BoundaryFileName = "boundary.geojson"

// FetchAll downloads the boundary of place and the given layers within
// area and writes them to dir, which is created if necessary.
func (c *Client) FetchAll(ctx context.Context, dir, place string, area Area, layers []Layer) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("overpass: creating output directory: %v", err)
	}
	c.log().WithField("place", place).Info("fetching boundary")
	b, err := c.Boundary(ctx, place)
	if err != nil {
		return err
	}
	if err = writeFile(filepath.Join(dir, BoundaryFileName), b); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for _, l := range layers {
		l := l
		g.Go(func() error {
			q, err := Query(l, area, c.Timeout)
			if err != nil {
				return err
			}
			c.log().WithField("layer", l).Info("fetching features")
			b, err := c.Fetch(ctx, q)
			if err != nil {
				return fmt.Errorf("overpass: layer %s: %v", l, err)
			}
			if o, err := decodeElements(b); err == nil {
				c.log().WithFields(logrus.Fields{
					"layer":     l,
					"nodes":     len(o.Nodes),
					"ways":      len(o.Ways),
					"relations": len(o.Relations),
				}).Info("fetched features")
			}
			return writeFile(filepath.Join(dir, LayerFileName(l)), b)
		})
	}
	return g.Wait()
}

func writeFile(path string, b []byte) error {
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("overpass: writing %s: %v", path, err)
	}
	return nil
}
