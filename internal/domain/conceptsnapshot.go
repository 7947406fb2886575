package domain

import (
	"errors"
	"strings"
	"time"
)

// SnapshotType discriminates a content-bearing snapshot from a deletion
// marker published on the change stream.
type SnapshotType string

const (
	SnapshotTypeNormal SnapshotType = "NORMAL"
	SnapshotTypeDelete SnapshotType = "DELETE"
)

// ConceptSnapshot is one immutable published version of a concept. Owned by
// the registry; this engine only reads it.
type ConceptSnapshot struct {
	ID              string
	IsVersionOf     string
	GeneratedAtTime time.Time
	SnapshotType    SnapshotType
	ProductID       string
	Content         ServiceContent
}

func (s ConceptSnapshot) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("concept snapshot id is required")
	}
	if strings.TrimSpace(s.IsVersionOf) == "" {
		return errors.New("is version of is required")
	}
	if s.GeneratedAtTime.IsZero() {
		return errGeneratedAtTimeRequired
	}
	switch s.SnapshotType {
	case SnapshotTypeNormal, SnapshotTypeDelete:
	default:
		return errors.New("snapshot type must be NORMAL or DELETE")
	}
	return s.Content.validateOrders()
}
