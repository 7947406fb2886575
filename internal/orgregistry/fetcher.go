// Package orgregistry resolves administrative units against the external
// organization registry. Lookups happen only when a municipality first shows
// up as an authority on a concept; results are persisted, never cached here.
package orgregistry

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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

// ErrNotFound reports that the registry knows no organization for the given
// URI or code.
var ErrNotFound = errors.New("organization not found")

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration

	// Token settings are optional; when TokenURL is empty requests go out
	// unauthenticated.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("organization registry base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("organization registry base URL: %w", err)
	}
	if strings.TrimSpace(c.TokenURL) != "" {
		if strings.TrimSpace(c.ClientID) == "" {
			return errors.New("organization registry client id is required when a token URL is set")
		}
		if strings.TrimSpace(c.ClientSecret) == "" {
			return errors.New("organization registry client secret is required when a token URL is set")
		}
	}
	return nil
}

type Fetcher struct {
	baseURL string
	http    *http.Client
}

func NewFetcher(cfg Config) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	base := &http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
	}
	client := base
	if strings.TrimSpace(cfg.TokenURL) != "" {
		cc := clientcredentials.Config{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = cc.Client(ctx)
		client.Timeout = timeout
	}

	return &Fetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    client,
	}, nil
}

type wireOrganization struct {
	URI            string `json:"uri"`
	PrefLabel      string `json:"prefLabel"`
	Classification string `json:"classification"`
}

func (w wireOrganization) toDomain() (domain.Organization, error) {
	if strings.TrimSpace(w.URI) == "" {
		return domain.Organization{}, errors.New("organization without uri")
	}
	return domain.Organization{
		URI:            w.URI,
		PrefLabel:      w.PrefLabel,
		Classification: w.Classification,
	}, nil
}

// FetchByURI dereferences a single administrative unit by its registry URI.
func (f *Fetcher) FetchByURI(ctx context.Context, uri string) (domain.Organization, error) {
	if f == nil || f.http == nil {
		return domain.Organization{}, errors.New("organization registry fetcher not initialized")
	}
	if strings.TrimSpace(uri) == "" {
		return domain.Organization{}, errors.New("organization uri is required")
	}
	body, err := f.get(ctx, f.baseURL+"/administrative-units?uri="+url.QueryEscape(uri))
	if err != nil {
		return domain.Organization{}, err
	}
	var wire wireOrganization
	if err := json.Unmarshal(body, &wire); err != nil {
		return domain.Organization{}, fmt.Errorf("decode organization %s: %w", uri, err)
	}
	return wire.toDomain()
}

// SearchByCode looks an administrative unit up by code when the URI is not
// directly resolvable; the first match wins.
func (f *Fetcher) SearchByCode(ctx context.Context, code string) (domain.Organization, error) {
	if f == nil || f.http == nil {
		return domain.Organization{}, errors.New("organization registry fetcher not initialized")
	}
	if strings.TrimSpace(code) == "" {
		return domain.Organization{}, errors.New("organization code is required")
	}
	body, err := f.get(ctx, f.baseURL+"/administrative-units/search?code="+url.QueryEscape(code))
	if err != nil {
		return domain.Organization{}, err
	}
	var wire struct {
		Results []wireOrganization `json:"results"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return domain.Organization{}, fmt.Errorf("decode search %s: %w", code, err)
	}
	if len(wire.Results) == 0 {
		return domain.Organization{}, fmt.Errorf("search %s: %w", code, ErrNotFound)
	}
	return wire.Results[0].toDomain()
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
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
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
