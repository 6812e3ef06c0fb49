package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"cabwatch/internal/roster"
)

// ErrNoPlayers means the page rendered without any rival rows. The site does
// this during maintenance and when the session cookie is bad.
var ErrNoPlayers = errors.New("no_players_found")

const (
	DefaultBaseURL = "https://p.eagate.573.jp"
	MaxEntries     = 10

	sessionCookie = "M573SSID"
	currentPage   = "/game/ddr/ddra20/p/rival/kensaku.html"
	legacyPage    = "/game/ddr/ddra/p/rival/kensaku.html"
)

type Client struct {
	base      *url.URL
	timeout   time.Duration
	transport http.RoundTripper
	now       func() time.Time

	mu   sync.Mutex
	jars map[string]http.CookieJar
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse source base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base:    base,
		timeout: timeout,
		now:     time.Now,
		jars:    map[string]http.CookieJar{},
	}, nil
}

// IsDailyMaintenance reports whether t falls in the 05:00-06:59 JST window.
func IsDailyMaintenance(t time.Time) bool {
	jstHour := (t.UTC().Hour() + 9) % 24
	return jstHour == 5 || jstHour == 6
}

// PageURL picks the rival search page. The legacy page keeps answering for
// US accounts during daily maintenance; the current one is faster otherwise.
func (c *Client) PageURL(t time.Time) string {
	u := *c.base
	u.Path = currentPage
	if IsDailyMaintenance(t) {
		u.Path = legacyPage
	}
	u.RawQuery = "mode=4"
	return u.String()
}

// Fetch returns up to MaxEntries rows for the account behind credential,
// most recently active first.
func (c *Client) Fetch(ctx context.Context, credential string) ([]roster.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageURL(c.now()), nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Jar: c.jarFor(credential), Transport: c.transport}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch roster page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch roster page: status %d", resp.StatusCode)
	}
	entries, err := ParseRoster(resp.Body, MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("parse roster page: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoPlayers
	}
	return entries, nil
}

func (c *Client) jarFor(credential string) http.CookieJar {
	c.mu.Lock()
	defer c.mu.Unlock()
	if jar, ok := c.jars[credential]; ok {
		return jar
	}
	jar, _ := cookiejar.New(nil)
	jar.SetCookies(c.base, []*http.Cookie{{
		Name:     sessionCookie,
		Value:    credential,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   31536000,
	}})
	c.jars[credential] = jar
	return jar
}
