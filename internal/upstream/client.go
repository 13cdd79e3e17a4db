// Package upstream holds the HTTP clients of the external estimators: travel
// time, cooking time and time-zone resolution. GET responses can be cached in Redis.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"chefslot/internal/metrics"
	"chefslot/internal/model"
)

// Options configures one estimator client.
type Options struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Limiter  *rate.Limiter
	Redis    *redis.Client
	CacheTTL time.Duration
}

type client struct {
	service    string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

func newClient(service string, opts Options) *client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &client{
		service:    service,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    opts.Limiter,
		redis:      opts.Redis,
		cacheTTL:   opts.CacheTTL,
	}
}

// get serves out from cache when possible, otherwise fetches endpoint and caches the result.
func (c *client) get(ctx context.Context, op, path, cacheKey string, out any) error {
	if cacheKey != "" && c.readCache(ctx, cacheKey, out) {
		return nil
	}
	if err := c.call(ctx, op, http.MethodGet, path, nil, out); err != nil {
		return err
	}
	if err := c.check(op, out); err != nil {
		return err
	}
	if cacheKey != "" {
		c.writeCache(ctx, cacheKey, out)
	}
	return nil
}

func (c *client) post(ctx context.Context, op, path, cacheKey string, body, out any) error {
	if cacheKey != "" && c.readCache(ctx, cacheKey, out) {
		return nil
	}
	if err := c.call(ctx, op, http.MethodPost, path, body, out); err != nil {
		return err
	}
	if err := c.check(op, out); err != nil {
		return err
	}
	if cacheKey != "" {
		c.writeCache(ctx, cacheKey, out)
	}
	return nil
}

// validator is implemented by responses that can be rejected after decoding.
// Rejected responses never reach the cache.
type validator interface {
	validate() error
}

func (c *client) check(op string, out any) error {
	v, ok := out.(validator)
	if !ok {
		return nil
	}
	if err := v.validate(); err != nil {
		return &model.UpstreamError{Service: c.service, Op: op, Err: err}
	}
	return nil
}

func (c *client) call(ctx context.Context, op, method, path string, body, out any) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveUpstream(c.service, op, started, err)
		if err != nil {
			err = &model.UpstreamError{Service: c.service, Op: op, Err: err}
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if len(msg) > 0 {
			return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

func (c *client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, c.service+":"+key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, c.service+":"+key, data, c.cacheTTL).Err()
}

// HealthCheck checks if the estimator is reachable.
func (c *client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s health check failed: %d", c.service, resp.StatusCode)
	}
	return nil
}
