package upstream

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
	_ "time/tzdata" // embedded zone database for minimal images

	"chefslot/internal/model"
)

const timezoneService = "timezone"

// TimezoneClient resolves locations to IANA zones remotely and converts wall
// clocks between zones locally.
type TimezoneClient struct {
	*client

	mu    sync.RWMutex
	zones map[string]*time.Location
}

func NewTimezoneClient(opts Options) *TimezoneClient {
	return &TimezoneClient{
		client: newClient(timezoneService, opts),
		zones:  make(map[string]*time.Location),
	}
}

type timezoneResponse struct {
	Zone string `json:"zone"`
}

// ResolveTimezone returns the IANA zone id of a location string.
func (c *TimezoneClient) ResolveTimezone(ctx context.Context, location string) (string, error) {
	q := url.Values{}
	q.Set("location", location)

	var resp timezoneResponse
	if err := c.get(ctx, "resolve", "/api/v1/timezone?"+q.Encode(), "resolve:"+location, &resp); err != nil {
		return "", err
	}
	if _, err := c.location(resp.Zone); err != nil {
		return "", &model.UpstreamError{Service: timezoneService, Op: "resolve", Err: err}
	}
	return resp.Zone, nil
}

// ConvertBetweenTimezones reads the wall clock of t as a time in fromZone and
// returns the same instant in toZone.
func (c *TimezoneClient) ConvertBetweenTimezones(t time.Time, fromZone, toZone string) (time.Time, error) {
	from, err := c.location(fromZone)
	if err != nil {
		return time.Time{}, &model.UpstreamError{Service: timezoneService, Op: "convert", Err: err}
	}
	to, err := c.location(toZone)
	if err != nil {
		return time.Time{}, &model.UpstreamError{Service: timezoneService, Op: "convert", Err: err}
	}
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), from)
	return wall.In(to), nil
}

func (c *TimezoneClient) location(zone string) (*time.Location, error) {
	if zone == "" {
		return nil, fmt.Errorf("empty zone")
	}

	c.mu.RLock()
	loc, ok := c.zones[zone]
	c.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", zone, err)
	}

	c.mu.Lock()
	c.zones[zone] = loc
	c.mu.Unlock()
	return loc, nil
}
