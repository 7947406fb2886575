package repo

import (
	"context"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

// ConceptRepository manages the mutable concept projection.
type ConceptRepository interface {
	FindByID(ctx context.Context, id string) (domain.Concept, error)
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, concept domain.Concept) error
	// Update replaces the full projection in a single transaction so readers
	// never observe a partial old/new mix.
	Update(ctx context.Context, concept domain.Concept) error
}

// InstanceRepository manages municipal instances. Delete writes a tombstone,
// never a hard delete; Recreate revives a previously tombstoned id while
// preserving its deletion history.
type InstanceRepository interface {
	FindByID(ctx context.Context, id string) (domain.Instance, error)
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, instance domain.Instance) error
	Update(ctx context.Context, instance domain.Instance) error
	Delete(ctx context.Context, id string, deletedAt time.Time) error
	IsDeleted(ctx context.Context, id string) (bool, error)
	Recreate(ctx context.Context, instance domain.Instance) error

	UpdateReviewStatuses(ctx context.Context, conceptID string, status domain.ReviewStatus) (int64, error)
}

// ConceptSnapshotRepository reads and records registry-published snapshots.
type ConceptSnapshotRepository interface {
	FindByID(ctx context.Context, id string) (domain.ConceptSnapshot, error)
	Save(ctx context.Context, snapshot domain.ConceptSnapshot) error
	// MaxGeneratedAtTimeFor returns the newest generatedAtTime among known
	// snapshots versioning the concept, zero time when none are known.
	MaxGeneratedAtTimeFor(ctx context.Context, conceptID string) (time.Time, error)
}

// InstanceSnapshotRepository reads authoring-client snapshots and tracks
// which of them have been processed.
type InstanceSnapshotRepository interface {
	FindByID(ctx context.Context, id string) (domain.InstanceSnapshot, error)
	Save(ctx context.Context, snapshot domain.InstanceSnapshot) error
	MarkProcessed(ctx context.Context, id string, processedAt time.Time) error
	IsProcessed(ctx context.Context, id string) (bool, error)
	HasNewerProcessedInstanceSnapshot(ctx context.Context, snapshotID string, instanceID string) (bool, error)
}

// ConceptDisplayConfigurationRepository manages per-(concept, municipality)
// display state.
type ConceptDisplayConfigurationRepository interface {
	// EnsureFor lazily creates the configuration row; it is an idempotent
	// upsert and never duplicates an existing pair.
	EnsureFor(ctx context.Context, conceptID string, municipality string) error
	// SyncInstantiatedFlag recomputes conceptIsInstantiated from the count of
	// non-archived instances referencing the concept.
	SyncInstantiatedFlag(ctx context.Context, conceptID string) error
}

// CodeRepository is the authority codelist cache.
type CodeRepository interface {
	Exists(ctx context.Context, uri string) (bool, error)
	Save(ctx context.Context, org domain.Organization) error
}
