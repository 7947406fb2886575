// Package ldes reads the registry's Linked Data Event Stream: change-set
// pages of quads plus dereferenceable snapshot documents. It is the only
// place raw stream data is touched; everything behind it works on the typed
// domain model.
package ldes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PredicateIsVersionOf is the only predicate this engine acts on; all other
// predicates in a change set are ignored.
const PredicateIsVersionOf = "http://purl.org/dc/terms/isVersionOf"

// Quad is one change-set entry as published on the stream.
type Quad struct {
	Graph     string `json:"graph"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Term   `json:"object"`
}

// Term is a quad object: a plain value with an optional datatype.
type Term struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Page is one fetched feed page: zero or more change sets plus the link to
// the next page, empty when the feed is exhausted.
type Page struct {
	URL        string
	ChangeSets [][]Quad
	Next       string
	Raw        []byte
}

type Config struct {
	Endpoint        string
	RequestTimeout  time.Duration
	MaxPagesPerPoll int
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("ldes endpoint is required")
	}
	if _, err := url.Parse(c.Endpoint); err != nil {
		return fmt.Errorf("ldes endpoint: %w", err)
	}
	return nil
}

type Client struct {
	endpoint string
	maxPages int
	http     *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxPages := cfg.MaxPagesPerPoll
	if maxPages <= 0 {
		maxPages = 10
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		maxPages: maxPages,
		http: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(),
		},
	}, nil
}

// FetchPages fetches feed pages starting at the given page URL (the feed
// root when empty), following next links up to the configured page bound.
func (c *Client) FetchPages(ctx context.Context, from string) ([]Page, error) {
	if c == nil || c.http == nil {
		return nil, errors.New("ldes client not initialized")
	}
	next := strings.TrimSpace(from)
	if next == "" {
		next = c.endpoint
	}
	pages := make([]Page, 0, c.maxPages)
	for i := 0; i < c.maxPages && next != ""; i++ {
		page, err := c.fetchPage(ctx, next)
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
		next = page.Next
	}
	return pages, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (Page, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return Page{}, err
	}
	var wire struct {
		ChangeSets [][]Quad `json:"changeSets"`
		Next       string   `json:"next"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Page{}, fmt.Errorf("decode page %s: %w", pageURL, err)
	}
	return Page{URL: pageURL, ChangeSets: wire.ChangeSets, Next: strings.TrimSpace(wire.Next), Raw: body}, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
