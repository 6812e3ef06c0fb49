package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// StatusError is returned for non-2xx responses. RetryAfter is set from the
// Retry-After header on 429s.
type StatusError struct {
	Code       int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Code)
}

type HTTPClient struct {
	inner   *http.Client
	limiter *rate.Limiter
	headers map[string]string
}

// NewHTTPClient builds a client that waits on a shared token bucket before
// every request. perSecond <= 0 disables limiting.
func NewHTTPClient(timeout time.Duration, perSecond float64, headers map[string]string) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &HTTPClient{
		inner:   &http.Client{Timeout: timeout},
		limiter: limiter,
		headers: headers,
	}
}

func (c *HTTPClient) PostJSONWithResponse(ctx context.Context, endpoint string, body any) (int, []byte, error) {
	return c.sendJSON(ctx, http.MethodPost, endpoint, body)
}

func (c *HTTPClient) PatchJSON(ctx context.Context, endpoint string, body any) error {
	_, _, err := c.sendJSON(ctx, http.MethodPatch, endpoint, body)
	return err
}

func (c *HTTPClient) Put(ctx context.Context, endpoint string) error {
	_, _, err := c.do(ctx, http.MethodPut, endpoint, nil)
	return err
}

func (c *HTTPClient) sendJSON(ctx context.Context, method, endpoint string, body any) (int, []byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	return c.do(ctx, method, endpoint, raw)
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, raw []byte) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}
	var reader io.Reader
	if raw != nil {
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.inner.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	bodyRaw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, nil, readErr
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, bodyRaw, nil
	}
	statusErr := &StatusError{Code: resp.StatusCode}
	if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
		statusErr.RetryAfter = time.Duration(secs * float64(time.Second))
	}
	return resp.StatusCode, bodyRaw, statusErr
}
