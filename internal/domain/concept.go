package domain

import (
	"errors"
	"strings"
)

// Concept is the mutable projection materialized from the latest accepted
// ConceptSnapshot. It is the only concept view external consumers read.
type Concept struct {
	ID        string
	UUID      string
	ProductID string
	Content   ServiceContent

	// Version lineage. LatestConceptSnapshot and HasVersionedSource both
	// point at the snapshot currently projected; PreviousVersionedSource is
	// the one projected before it. HasLatestFunctionalChange points at the
	// snapshot that last changed meaning-bearing content.
	LatestConceptSnapshot     string
	HasVersionedSource        string
	PreviousVersionedSource   string
	HasLatestFunctionalChange string

	IsArchived bool
}

func (c Concept) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("concept id is required")
	}
	if strings.TrimSpace(c.UUID) == "" {
		return errors.New("concept uuid is required")
	}
	if strings.TrimSpace(c.LatestConceptSnapshot) == "" {
		return errors.New("latest concept snapshot is required")
	}
	return nil
}

// RecordsSnapshot reports whether the concept already carries the snapshot
// as its current or previous versioned source. Used as the replay guard.
func (c Concept) RecordsSnapshot(snapshotID string) bool {
	return snapshotID != "" &&
		(c.HasVersionedSource == snapshotID || c.PreviousVersionedSource == snapshotID)
}
