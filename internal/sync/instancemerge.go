package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
	"github.com/pubcat-labs/pubcat-go/internal/repo"
)

// InstanceMergeService applies authoring-client snapshots to municipal
// instances: create, update or archive, with sub-entity identities
// regenerated on every copy so instances never share mutable child records
// with a snapshot or with each other.
type InstanceMergeService struct {
	logger         *slog.Logger
	instances      repo.InstanceRepository
	snapshots      repo.InstanceSnapshotRepository
	concepts       repo.ConceptRepository
	displayConfigs repo.ConceptDisplayConfigurationRepository
	chosenForm     func(municipality string) domain.ChosenForm
	newID          func() string
	newUUID        func() string
	now            func() time.Time
}

type InstanceMergeConfig struct {
	Instances      repo.InstanceRepository
	Snapshots      repo.InstanceSnapshotRepository
	Concepts       repo.ConceptRepository
	DisplayConfigs repo.ConceptDisplayConfigurationRepository
	// ChosenForm resolves a municipality's formal/informal preference; nil
	// means no preference anywhere.
	ChosenForm func(municipality string) domain.ChosenForm
}

func NewInstanceMergeService(logger *slog.Logger, cfg InstanceMergeConfig, newID func() string, newUUID func() string) (*InstanceMergeService, error) {
	if cfg.Instances == nil || cfg.Snapshots == nil || cfg.Concepts == nil || cfg.DisplayConfigs == nil {
		return nil, errors.New("instance, snapshot, concept and display configuration repositories are required")
	}
	if newID == nil || newUUID == nil {
		return nil, errors.New("id generators are required")
	}
	chosenForm := cfg.ChosenForm
	if chosenForm == nil {
		chosenForm = func(string) domain.ChosenForm { return domain.ChosenFormNone }
	}
	return &InstanceMergeService{
		logger:         logger,
		instances:      cfg.Instances,
		snapshots:      cfg.Snapshots,
		concepts:       cfg.Concepts,
		displayConfigs: cfg.DisplayConfigs,
		chosenForm:     chosenForm,
		newID:          newID,
		newUUID:        newUUID,
		now:            time.Now,
	}, nil
}

// Merge applies one accepted instance snapshot.
func (s *InstanceMergeService) Merge(ctx context.Context, entry DeltaEntry) (MergeOutcome, error) {
	if s == nil || s.instances == nil {
		return MergeOutcome{}, errors.New("instance merge service not initialized")
	}

	snapshot, err := s.snapshots.FindByID(ctx, entry.SnapshotID)
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("resolve instance snapshot %s: %w", entry.SnapshotID, err)
	}
	if err := snapshot.Validate(); err != nil {
		return MergeOutcome{}, fmt.Errorf("instance snapshot %s: %w", snapshot.ID, err)
	}
	instanceID := snapshot.IsVersionOfInstance

	newer, err := s.snapshots.HasNewerProcessedInstanceSnapshot(ctx, snapshot.ID, instanceID)
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("newer snapshot check %s: %w", snapshot.ID, err)
	}
	if newer {
		return MergeOutcome{Skipped: true, Reason: "newer snapshot already processed"}, nil
	}

	exists, err := s.instances.Exists(ctx, instanceID)
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("instance exists %s: %w", instanceID, err)
	}

	var outcome MergeOutcome
	var oldConceptID string
	switch {
	case !exists && snapshot.IsArchived:
		outcome = MergeOutcome{Skipped: true, Reason: "archived snapshot for unknown instance"}
	case !exists:
		outcome, err = s.create(ctx, instanceID, snapshot)
	case snapshot.IsArchived:
		oldConceptID, err = s.delete(ctx, instanceID)
		outcome = MergeOutcome{Action: "instance.delete"}
	default:
		oldConceptID, outcome, err = s.update(ctx, instanceID, snapshot)
	}
	if err != nil {
		return MergeOutcome{}, err
	}

	if !outcome.Skipped {
		if err := s.snapshots.MarkProcessed(ctx, snapshot.ID, s.now().UTC()); err != nil {
			return MergeOutcome{}, fmt.Errorf("mark snapshot processed %s: %w", snapshot.ID, err)
		}
		// Recompute the instantiated flag for both linkages: the snapshot may
		// have re-linked the instance to a different concept.
		s.syncInstantiatedFlags(ctx, oldConceptID, snapshot.ConceptID)
	}
	return outcome, nil
}

func (s *InstanceMergeService) create(ctx context.Context, instanceID string, snapshot domain.InstanceSnapshot) (MergeOutcome, error) {
	now := s.now().UTC()
	instance := domain.Instance{
		ID:           instanceID,
		UUID:         s.newUUID(),
		CreatedBy:    snapshot.CreatedBy,
		Content:      snapshot.Content.CopyWithNewIDs(s.newID),
		Status:       domain.InstanceStatusSent,
		DateCreated:  now,
		DateModified: now,
		DateSent:     now,
	}
	instance.DutchLanguageVariant = SelectVariant(instance.Content.Title, s.chosenForm(snapshot.CreatedBy))
	s.linkConcept(ctx, &instance, snapshot.ConceptID)

	wasDeleted, err := s.instances.IsDeleted(ctx, instanceID)
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("deletion check %s: %w", instanceID, err)
	}
	if wasDeleted {
		// Recreate keeps the deletion history markers instead of inserting
		// as if the id never existed.
		if err := s.instances.Recreate(ctx, instance); err != nil {
			return MergeOutcome{}, fmt.Errorf("recreate instance %s: %w", instanceID, err)
		}
	} else if err := s.instances.Save(ctx, instance); err != nil {
		return MergeOutcome{}, fmt.Errorf("save instance %s: %w", instanceID, err)
	}
	return MergeOutcome{Action: "instance.create"}, nil
}

func (s *InstanceMergeService) update(ctx context.Context, instanceID string, snapshot domain.InstanceSnapshot) (string, MergeOutcome, error) {
	current, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return "", MergeOutcome{}, fmt.Errorf("find instance %s: %w", instanceID, err)
	}

	updated := current
	updated.CreatedBy = snapshot.CreatedBy
	updated.Content = snapshot.Content.CopyWithNewIDs(s.newID)
	updated.Status = domain.InstanceStatusSent
	updated.DutchLanguageVariant = SelectVariant(updated.Content.Title, s.chosenForm(snapshot.CreatedBy))
	updated.DateModified = s.now().UTC()
	updated.DateSent = updated.DateModified
	if current.PublicationStatus == domain.PublicationStatusPublished {
		updated.PublicationStatus = domain.PublicationStatusNeedsRepublish
	}
	s.linkConcept(ctx, &updated, snapshot.ConceptID)

	if err := s.instances.Update(ctx, updated); err != nil {
		return "", MergeOutcome{}, fmt.Errorf("update instance %s: %w", instanceID, err)
	}
	return current.ConceptID, MergeOutcome{Action: "instance.update"}, nil
}

func (s *InstanceMergeService) delete(ctx context.Context, instanceID string) (string, error) {
	current, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return "", fmt.Errorf("find instance %s: %w", instanceID, err)
	}
	if err := s.instances.Delete(ctx, instanceID, s.now().UTC()); err != nil {
		return "", fmt.Errorf("delete instance %s: %w", instanceID, err)
	}
	return current.ConceptID, nil
}

// linkConcept attaches concept lineage to the instance when its concept can
// be resolved. An unresolvable concept is not an error: the instance merges
// without lineage and converges once the concept arrives.
func (s *InstanceMergeService) linkConcept(ctx context.Context, instance *domain.Instance, conceptID string) {
	instance.ConceptID = conceptID
	instance.ConceptSnapshot = ""
	instance.ProductID = ""
	if conceptID == "" {
		return
	}
	concept, err := s.concepts.FindByID(ctx, conceptID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.log("concept lookup failed", "concept", conceptID, "error", err)
		}
		return
	}
	instance.ConceptSnapshot = concept.LatestConceptSnapshot
	instance.ProductID = concept.ProductID
}

func (s *InstanceMergeService) syncInstantiatedFlags(ctx context.Context, conceptIDs ...string) {
	done := make(map[string]struct{}, len(conceptIDs))
	for _, conceptID := range conceptIDs {
		if conceptID == "" {
			continue
		}
		if _, seen := done[conceptID]; seen {
			continue
		}
		done[conceptID] = struct{}{}
		if err := s.displayConfigs.SyncInstantiatedFlag(ctx, conceptID); err != nil {
			s.log("sync instantiated flag failed", "concept", conceptID, "error", err)
		}
	}
}

func (s *InstanceMergeService) log(msg string, attrs ...any) {
	if s.logger == nil {
		return
	}
	fields := []any{"component", "instance_merge"}
	fields = append(fields, attrs...)
	s.logger.Warn(msg, fields...)
}
