package orgregistry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchByURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/administrative-units" {
			http.NotFound(w, r)
			return
		}
		uri := r.URL.Query().Get("uri")
		if uri != "https://data.example.org/bestuurseenheid/gent" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"uri":            uri,
			"prefLabel":      "Gent",
			"classification": "Gemeente",
		})
	}))
	defer server.Close()

	fetcher, err := NewFetcher(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	org, err := fetcher.FetchByURI(context.Background(), "https://data.example.org/bestuurseenheid/gent")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if org.PrefLabel != "Gent" || org.Classification != "Gemeente" {
		t.Fatalf("unexpected organization: %+v", org)
	}
}

func TestFetchByURI_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	fetcher, err := NewFetcher(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	_, err = fetcher.FetchByURI(context.Background(), "https://data.example.org/bestuurseenheid/onbekend")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestSearchByCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/administrative-units/search" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("code") {
		case "44021":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]string{
					{"uri": "https://data.example.org/bestuurseenheid/gent", "prefLabel": "Gent", "classification": "Gemeente"},
					{"uri": "https://data.example.org/bestuurseenheid/gent-ocmw", "prefLabel": "OCMW Gent", "classification": "OCMW"},
				},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]string{}})
		}
	}))
	defer server.Close()

	fetcher, err := NewFetcher(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	org, err := fetcher.SearchByCode(context.Background(), "44021")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if org.URI != "https://data.example.org/bestuurseenheid/gent" {
		t.Fatalf("first match must win, got %+v", org)
	}

	if _, err := fetcher.SearchByCode(context.Background(), "99999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty result err=%v, want ErrNotFound", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Fatal("missing base URL must be rejected")
	}
	if err := (Config{BaseURL: "https://reg.example.org", TokenURL: "https://auth.example.org/token"}).Validate(); err == nil {
		t.Fatal("token URL without client credentials must be rejected")
	}
	cfg := Config{
		BaseURL:      "https://reg.example.org",
		TokenURL:     "https://auth.example.org/token",
		ClientID:     "pubcat",
		ClientSecret: "secret",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
