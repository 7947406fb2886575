package domain

import (
	"errors"
	"strings"
)

// ConceptDisplayConfiguration tracks, per (concept, municipality) pair,
// whether the concept is new for that municipality and whether at least one
// non-archived instance was derived from it. Created lazily on concept merge.
type ConceptDisplayConfiguration struct {
	ID                    string
	UUID                  string
	ConceptID             string
	Municipality          string
	ConceptIsNew          bool
	ConceptIsInstantiated bool
}

func (c ConceptDisplayConfiguration) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("display configuration id is required")
	}
	if strings.TrimSpace(c.ConceptID) == "" {
		return errors.New("concept id is required")
	}
	if strings.TrimSpace(c.Municipality) == "" {
		return errors.New("municipality is required")
	}
	return nil
}

// Organization is an authority resolved from the external organization
// registry and cached in the codelist.
type Organization struct {
	URI            string
	PrefLabel      string
	Classification string
}

func (o Organization) Validate() error {
	if strings.TrimSpace(o.URI) == "" {
		return errors.New("organization uri is required")
	}
	if strings.TrimSpace(o.PrefLabel) == "" {
		return errors.New("organization pref label is required")
	}
	return nil
}
