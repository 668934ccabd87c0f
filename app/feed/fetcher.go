package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
)

const (
	maxPageBytes   = 5 << 20
	maxRobotsBytes = 512 << 10
	robotsHosts    = 256
)

var ErrDisallowed = errors.New("disallowed by robots.txt")

type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	robots     *lru.Cache[string, *robotstxt.RobotsData]
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string) *Fetcher {
	robots, _ := lru.New[string, *robotstxt.RobotsData](robotsHosts)

	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		robots:     robots,
	}
}

// FetchFeed issues a single GET for url and parses the body as RSS or Atom.
// Any failure is reported as *apperr.FetchError.
func (f *Fetcher) FetchFeed(ctx context.Context, url string) (*Metadata, []Entry, error) {
	data, err := f.get(ctx, url, "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8", false)
	if err != nil {
		return nil, nil, &apperr.FetchError{URL: url, Err: err}
	}

	metadata, entries, err := f.parser.Run(data)
	if err != nil {
		return nil, nil, &apperr.FetchError{URL: url, Err: err}
	}

	slog.Debug("Feed fetched", "url", url, "entries", len(entries))

	return metadata, entries, nil
}

// FetchPage returns the HTML of an article page decoded to UTF-8.
// Pages whose site disallows our user agent in robots.txt are not fetched.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	if pageURL == "" {
		return nil, &apperr.FetchError{URL: pageURL, Err: fmt.Errorf("empty url")}
	}

	if err := f.checkRobots(ctx, pageURL); err != nil {
		return nil, &apperr.FetchError{URL: pageURL, Err: err}
	}

	data, err := f.get(ctx, pageURL, "text/html, application/xhtml+xml;q=0.9, */*;q=0.8", true)
	if err != nil {
		return nil, &apperr.FetchError{URL: pageURL, Err: err}
	}
	return data, nil
}

func (f *Fetcher) checkRobots(ctx context.Context, pageURL string) error {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid url: missing host")
	}

	origin := parsed.Scheme + "://" + parsed.Host
	robots, ok := f.robots.Get(origin)
	if !ok {
		robots = f.loadRobots(ctx, origin)
		f.robots.Add(origin, robots)
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !robots.TestAgent(path, f.userAgent) {
		return ErrDisallowed
	}
	return nil
}

// loadRobots never fails: unreachable or malformed robots.txt allows all.
func (f *Fetcher) loadRobots(ctx context.Context, origin string) *robotstxt.RobotsData {
	allowAll, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return allowAll
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		slog.Debug("robots.txt unavailable", "origin", origin, "error", err)
		return allowAll
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return allowAll
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		slog.Debug("Failed to parse robots.txt", "origin", origin, "error", err)
		return allowAll
	}
	return robots
}

// get reads the response body. Feed XML is left as-is because the parser
// honours the encoding declared in the document.
func (f *Fetcher) get(ctx context.Context, target, accept string, decode bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	var body io.Reader = io.LimitReader(resp.Body, maxPageBytes)
	if decode {
		body, err = charset.NewReader(body, resp.Header.Get("Content-Type"))
		if err != nil {
			return nil, fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
