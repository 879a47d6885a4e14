// Package feed polls a VirtualRadar-style AircraftList.json endpoint and turns
// its aircraft records into track updates.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/skypies/geo"

	"github.com/banshee-data/skygrid/internal/httputil"
	"github.com/banshee-data/skygrid/internal/monitoring"
	"github.com/banshee-data/skygrid/internal/track"
)

// maxBodySize caps how much of a feed response is read.
const maxBodySize = 8 * 1024 * 1024

// Source produces one batch of updates per call.
type Source interface {
	Fetch(ctx context.Context) ([]track.Update, error)
}

// Aircraft is one acList entry. Every field may be null or missing.
type Aircraft struct {
	Reg  *string  `json:"Reg"`
	Lat  *float64 `json:"Lat"`
	Long *float64 `json:"Long"`
	From *string  `json:"From"`
	To   *string  `json:"To"`
	Type *string  `json:"Type"`
	Alt  *float64 `json:"Alt"`
	Mdl  *string  `json:"Mdl"`
	Op   *string  `json:"Op"`
}

// AircraftList is the response body. Malformed counts acList entries that
// could not be decoded and were left out of Aircraft.
type AircraftList struct {
	Aircraft  []Aircraft `json:"acList"`
	Malformed int        `json:"-"`
}

// DiscardCounter is implemented by sources that drop unusable records
// before they reach the registry.
type DiscardCounter interface {
	Discarded() int
}

// Client queries the feed around a home point.
type Client struct {
	BaseURL  string
	Home     geo.Latlong
	RadiusKM float64
	HTTP     httputil.HTTPClient

	mu        sync.Mutex
	discarded int
}

// NewClient returns a Client. A nil http client gets a StandardClient with no
// timeout; callers bound requests through the context.
func NewClient(baseURL string, home geo.Latlong, radiusKM float64, c httputil.HTTPClient) *Client {
	if c == nil {
		c = httputil.NewStandardClient(0)
	}
	return &Client{BaseURL: baseURL, Home: home, RadiusKM: radiusKM, HTTP: c}
}

// QueryURL builds the request URL for the configured home and radius.
func (c *Client) QueryURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed url %q: %w", c.BaseURL, err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(c.Home.Lat, 'f', 6, 64))
	q.Set("lng", strconv.FormatFloat(c.Home.Long, 'f', 6, 64))
	q.Set("fDstL", "0")
	q.Set("fDstU", strconv.FormatFloat(c.RadiusKM, 'f', -1, 64))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch performs one poll. Aircraft reporting a position outside the radius
// are dropped; aircraft with no position at all are passed through so their
// descriptive fields still reach the registry.
func (c *Client) Fetch(ctx context.Context) ([]track.Update, error) {
	target, err := c.QueryURL()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("User-Agent", httputil.DefaultUserAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	list, err := Decode(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if list.Malformed > 0 {
		c.mu.Lock()
		c.discarded += list.Malformed
		c.mu.Unlock()
	}

	updates := make([]track.Update, 0, len(list.Aircraft))
	for _, a := range list.Aircraft {
		if !c.inRange(a) {
			continue
		}
		updates = append(updates, a.Update())
	}
	return updates, nil
}

func (c *Client) inRange(a Aircraft) bool {
	if a.Lat == nil || a.Long == nil || c.RadiusKM <= 0 {
		return true
	}
	return c.Home.DistKM(geo.Latlong{Lat: *a.Lat, Long: *a.Long}) <= c.RadiusKM
}

// Discarded returns how many malformed records Fetch has dropped so far.
func (c *Client) Discarded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discarded
}

// Decode parses an AircraftList body. Each acList entry is decoded on its
// own: an entry with a mistyped field is logged, counted in Malformed and
// skipped. Only a body that is not an aircraft list at all is an error.
func Decode(r io.Reader) (*AircraftList, error) {
	var raw struct {
		Aircraft []json.RawMessage `json:"acList"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode aircraft list: %w", err)
	}

	list := &AircraftList{Aircraft: make([]Aircraft, 0, len(raw.Aircraft))}
	for i, rec := range raw.Aircraft {
		var a Aircraft
		if err := json.Unmarshal(rec, &a); err != nil {
			monitoring.Warnf("discarding malformed aircraft record %d: %v", i, err)
			list.Malformed++
			continue
		}
		list.Aircraft = append(list.Aircraft, a)
	}
	return list, nil
}

// Update maps the record onto the registry's update type. A missing Reg
// becomes an empty ID, which the registry rejects.
func (a Aircraft) Update() track.Update {
	u := track.Update{
		Latitude:    a.Lat,
		Longitude:   a.Long,
		Origin:      a.From,
		Destination: a.To,
		Kind:        a.Type,
		Altitude:    a.Alt,
		Model:       a.Mdl,
		Operator:    a.Op,
	}
	if a.Reg != nil {
		u.ID = *a.Reg
	}
	return u
}
