// Package config loads the municipality configuration file: which
// administrative units participate in the catalog and which Dutch form each
// of them presents to citizens.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

type Municipality struct {
	URI        string `yaml:"uri"`
	Name       string `yaml:"name"`
	ChosenForm string `yaml:"chosenForm"`
}

type Config struct {
	Municipalities []Municipality `yaml:"municipalities"`
}

func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Config{}, errors.New("config path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.Municipalities) == 0 {
		return errors.New("at least one municipality is required")
	}
	seen := make(map[string]struct{}, len(c.Municipalities))
	for i, m := range c.Municipalities {
		uri := strings.TrimSpace(m.URI)
		if uri == "" {
			return fmt.Errorf("municipality %d: uri is required", i)
		}
		if _, dup := seen[uri]; dup {
			return fmt.Errorf("municipality %d: duplicate uri %q", i, uri)
		}
		seen[uri] = struct{}{}
		switch strings.TrimSpace(m.ChosenForm) {
		case "", "formal", "informal":
		default:
			return fmt.Errorf("municipality %d: chosenForm must be formal or informal (got %q)", i, m.ChosenForm)
		}
	}
	return nil
}

// MunicipalityURIs lists the eligible municipalities in file order.
func (c Config) MunicipalityURIs() []string {
	uris := make([]string, 0, len(c.Municipalities))
	for _, m := range c.Municipalities {
		uris = append(uris, strings.TrimSpace(m.URI))
	}
	return uris
}

// ChosenFormFor returns the configured form for a municipality; unknown
// municipalities and unset choices fall back to the formal default.
func (c Config) ChosenFormFor(uri string) domain.ChosenForm {
	for _, m := range c.Municipalities {
		if strings.TrimSpace(m.URI) != strings.TrimSpace(uri) {
			continue
		}
		switch strings.TrimSpace(m.ChosenForm) {
		case "informal":
			return domain.ChosenFormInformal
		case "formal":
			return domain.ChosenFormFormal
		}
		return domain.ChosenFormNone
	}
	return domain.ChosenFormNone
}
