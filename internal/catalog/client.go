// Package catalog fetches satellite TLE catalogs from the paginated TLE API
// and from CelesTrak-style text.
package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/model"
)

const (
	// DefaultBaseURL is the public TLE API.
	DefaultBaseURL = "https://tle.ivanstanojevic.me/api/tle"
	// DefaultPageSize matches the API's own default.
	DefaultPageSize = 20

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

var (
	// ErrUnexpectedStatus wraps any non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected catalog status")
	// ErrSatelliteNotFound is returned when the API answers 404 for an id.
	ErrSatelliteNotFound = errors.New("satellite not found in catalog")
)

// Source is anything that can serve catalog pages and single entries.
type Source interface {
	FetchPage(ctx context.Context, page int) (model.Page, error)
	FetchSatellite(ctx context.Context, id int) (model.Satellite, error)
}

// Client talks to the TLE API over HTTP.
type Client struct {
	baseURL    string
	pageSize   int
	search     string
	httpClient *http.Client
	log        logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the request timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithPageSize sets the page-size query parameter. Zero keeps the API default.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithSearch restricts pages to entries whose name matches q.
func WithSearch(q string) Option {
	return func(c *Client) { c.search = strings.TrimSpace(q) }
}

// WithLogger attaches a logger; the default discards.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient builds a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchPage retrieves one catalog page. Pages are 1-based; smaller values are
// clamped to 1.
func (c *Client) FetchPage(ctx context.Context, page int) (model.Page, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if c.pageSize > 0 {
		q.Set("page-size", strconv.Itoa(c.pageSize))
	}
	if c.search != "" {
		q.Set("search", c.search)
	}

	var coll collection
	if err := c.getJSON(ctx, c.baseURL+"/?"+q.Encode(), &coll); err != nil {
		return model.Page{}, errors.Wrapf(err, "fetch catalog page %d", page)
	}

	p := coll.toPage(page)
	c.log.Debug(ctx, "catalog page fetched",
		logging.Int("page", p.Number),
		logging.Int("satellites", len(p.Satellites)),
		logging.Int("total_items", p.TotalItems),
	)
	return p, nil
}

// FetchSatellite retrieves the latest TLE for one NORAD id.
func (c *Client) FetchSatellite(ctx context.Context, id int) (model.Satellite, error) {
	var m member
	err := c.getJSON(ctx, c.baseURL+"/"+strconv.Itoa(id), &m)
	if err != nil {
		return model.Satellite{}, errors.Wrapf(err, "fetch satellite %d", id)
	}
	return m.toSatellite(), nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrSatelliteNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return errors.Wrapf(ErrUnexpectedStatus, "status %d from %s", resp.StatusCode, rawURL)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// member is one hydra "Tle" object.
type member struct {
	SatelliteID int    `json:"satelliteId"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2"`
}

func (m member) toSatellite() model.Satellite {
	sat := model.Satellite{
		ID:    m.SatelliteID,
		Name:  strings.TrimSpace(m.Name),
		Line1: m.Line1,
		Line2: m.Line2,
	}
	if ts, err := time.Parse(time.RFC3339, m.Date); err == nil {
		sat.Date = ts.UTC()
	}
	return sat
}

// collection is the hydra "Tle[]" envelope.
type collection struct {
	TotalItems int      `json:"totalItems"`
	Member     []member `json:"member"`
	Parameters struct {
		Page     int `json:"page"`
		PageSize int `json:"page-size"`
	} `json:"parameters"`
	View struct {
		First    string `json:"first"`
		Previous string `json:"previous"`
		Next     string `json:"next"`
		Last     string `json:"last"`
	} `json:"view"`
}

func (c collection) toPage(requested int) model.Page {
	number := c.Parameters.Page
	if number < 1 {
		number = requested
	}
	size := c.Parameters.PageSize
	if size <= 0 {
		size = len(c.Member)
	}
	sats := make([]model.Satellite, 0, len(c.Member))
	for _, m := range c.Member {
		sats = append(sats, m.toSatellite())
	}
	return model.Page{
		Number:     number,
		PageSize:   size,
		TotalItems: c.TotalItems,
		Satellites: sats,
		HasNext:    c.View.Next != "",
		HasPrev:    c.View.Previous != "",
	}
}
