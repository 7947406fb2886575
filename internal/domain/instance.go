package domain

import (
	"errors"
	"strings"
	"time"
)

// InstanceStatus is the authoring lifecycle state of an instance.
type InstanceStatus string

const (
	InstanceStatusSent InstanceStatus = "sent"
)

// PublicationStatus tracks whether the instance has reached the public site.
type PublicationStatus string

const (
	PublicationStatusNone           PublicationStatus = ""
	PublicationStatusPublished      PublicationStatus = "published"
	PublicationStatusNeedsRepublish PublicationStatus = "needs-republish"
)

// ReviewStatus flags an instance whose underlying concept changed after the
// instance was derived from it. Cleared by the instance author, not by this
// engine.
type ReviewStatus string

const (
	ReviewStatusNone            ReviewStatus = ""
	ReviewStatusConceptUpdated  ReviewStatus = "concept-updated"
	ReviewStatusConceptArchived ReviewStatus = "concept-archived"
)

// Instance is a municipality's mutable copy of a concept's content plus
// municipality-specific fields.
type Instance struct {
	ID        string
	UUID      string
	CreatedBy string // municipality IRI
	Content   ServiceContent

	ConceptID       string
	ConceptSnapshot string // latest concept snapshot at link time
	ProductID       string

	SpatialScope []string

	Status            InstanceStatus
	PublicationStatus PublicationStatus
	ReviewStatus      ReviewStatus

	DutchLanguageVariant LanguageVariant

	DateCreated  time.Time
	DateModified time.Time
	DateSent     time.Time
}

func (i Instance) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return errors.New("instance id is required")
	}
	if strings.TrimSpace(i.UUID) == "" {
		return errors.New("instance uuid is required")
	}
	if strings.TrimSpace(i.CreatedBy) == "" {
		return errors.New("created by is required")
	}
	return i.Content.validateOrders()
}

// InstanceSnapshot is an immutable point-in-time instance state published by
// a municipality's own authoring client.
type InstanceSnapshot struct {
	ID                  string
	IsVersionOfInstance string
	CreatedBy           string
	GeneratedAtTime     time.Time
	IsArchived          bool
	ConceptID           string
	Content             ServiceContent
}

func (s InstanceSnapshot) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("instance snapshot id is required")
	}
	if strings.TrimSpace(s.IsVersionOfInstance) == "" {
		return errors.New("is version of instance is required")
	}
	if strings.TrimSpace(s.CreatedBy) == "" {
		return errors.New("created by is required")
	}
	if s.GeneratedAtTime.IsZero() {
		return errGeneratedAtTimeRequired
	}
	return s.Content.validateOrders()
}

// Tombstone marks a deleted instance in place of its live record. Instances
// that were ever published are never hard-deleted.
type Tombstone struct {
	ID                   string
	FormerType           string
	DeletedAt            time.Time
	IsPublishedVersionOf string
}

func (t Tombstone) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("tombstone id is required")
	}
	if strings.TrimSpace(t.FormerType) == "" {
		return errors.New("former type is required")
	}
	if t.DeletedAt.IsZero() {
		return errors.New("deleted at is required")
	}
	return nil
}
