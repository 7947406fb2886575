package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
	"github.com/pubcat-labs/pubcat-go/internal/repo"
)

// OrganizationFetcher resolves authority organizations from the external
// registry: direct URI lookup first, search by code as fallback.
type OrganizationFetcher interface {
	FetchByURI(ctx context.Context, uri string) (domain.Organization, error)
	SearchByCode(ctx context.Context, code string) (domain.Organization, error)
}

// MergeOutcome describes what a merge did with one accepted delta entry.
type MergeOutcome struct {
	Action  string
	Skipped bool
	Reason  string
}

// ConceptMergeService materializes, updates and archives the mutable concept
// projection from accepted registry snapshots.
type ConceptMergeService struct {
	logger         *slog.Logger
	concepts       repo.ConceptRepository
	snapshots      repo.ConceptSnapshotRepository
	instances      repo.InstanceRepository
	displayConfigs repo.ConceptDisplayConfigurationRepository
	codes          repo.CodeRepository
	orgRegistry    OrganizationFetcher
	municipalities []string
	newUUID        func() string
}

type ConceptMergeConfig struct {
	Concepts       repo.ConceptRepository
	Snapshots      repo.ConceptSnapshotRepository
	Instances      repo.InstanceRepository
	DisplayConfigs repo.ConceptDisplayConfigurationRepository
	Codes          repo.CodeRepository
	OrgRegistry    OrganizationFetcher // optional
	Municipalities []string            // eligible municipality IRIs
}

func NewConceptMergeService(logger *slog.Logger, cfg ConceptMergeConfig, newUUID func() string) (*ConceptMergeService, error) {
	if cfg.Concepts == nil || cfg.Snapshots == nil || cfg.Instances == nil || cfg.DisplayConfigs == nil {
		return nil, errors.New("concept, snapshot, instance and display configuration repositories are required")
	}
	if newUUID == nil {
		return nil, errors.New("uuid generator is required")
	}
	return &ConceptMergeService{
		logger:         logger,
		concepts:       cfg.Concepts,
		snapshots:      cfg.Snapshots,
		instances:      cfg.Instances,
		displayConfigs: cfg.DisplayConfigs,
		codes:          cfg.Codes,
		orgRegistry:    cfg.OrgRegistry,
		municipalities: cfg.Municipalities,
		newUUID:        newUUID,
	}, nil
}

// Merge applies one accepted delta entry to the concept projection.
func (s *ConceptMergeService) Merge(ctx context.Context, entry DeltaEntry) (MergeOutcome, error) {
	if s == nil || s.concepts == nil {
		return MergeOutcome{}, errors.New("concept merge service not initialized")
	}

	snapshot, err := s.snapshots.FindByID(ctx, entry.SnapshotID)
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("resolve snapshot %s: %w", entry.SnapshotID, err)
	}
	if err := snapshot.Validate(); err != nil {
		return MergeOutcome{}, fmt.Errorf("snapshot %s: %w", snapshot.ID, err)
	}

	s.ensureAuthorities(ctx, snapshot.Content)

	exists, err := s.concepts.Exists(ctx, entry.TargetID)
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("concept exists %s: %w", entry.TargetID, err)
	}
	if !exists {
		return s.materialize(ctx, entry.TargetID, snapshot)
	}
	return s.update(ctx, entry.TargetID, snapshot)
}

// materialize creates the projection on the first accepted snapshot for a
// concept id. The first version is always the functional baseline.
func (s *ConceptMergeService) materialize(ctx context.Context, conceptID string, snapshot domain.ConceptSnapshot) (MergeOutcome, error) {
	concept := domain.Concept{
		ID:                        conceptID,
		UUID:                      s.newUUID(),
		ProductID:                 snapshot.ProductID,
		Content:                   snapshot.Content,
		LatestConceptSnapshot:     snapshot.ID,
		HasVersionedSource:        snapshot.ID,
		HasLatestFunctionalChange: snapshot.ID,
		IsArchived:                snapshot.SnapshotType == domain.SnapshotTypeDelete,
	}
	if err := s.concepts.Save(ctx, concept); err != nil {
		return MergeOutcome{}, fmt.Errorf("save concept %s: %w", conceptID, err)
	}
	s.ensureDisplayConfigurations(ctx, conceptID)
	return MergeOutcome{Action: "concept.create"}, nil
}

func (s *ConceptMergeService) update(ctx context.Context, conceptID string, snapshot domain.ConceptSnapshot) (MergeOutcome, error) {
	current, err := s.concepts.FindByID(ctx, conceptID)
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("find concept %s: %w", conceptID, err)
	}

	if snapshot.SnapshotType == domain.SnapshotTypeDelete {
		return s.archive(ctx, current, snapshot)
	}

	functionallyChanged := IsFunctionallyChanged(
		current.LatestConceptSnapshot, current.Content,
		snapshot.ID, snapshot.Content,
		domain.ChosenFormNone,
	)

	updated := current
	updated.ProductID = snapshot.ProductID
	updated.Content = snapshot.Content
	updated.LatestConceptSnapshot = snapshot.ID
	updated.PreviousVersionedSource = current.HasVersionedSource
	updated.HasVersionedSource = snapshot.ID
	updated.IsArchived = false
	if functionallyChanged {
		updated.HasLatestFunctionalChange = snapshot.ID
	}

	// The full replacement goes through one Update so readers never see a
	// partial old/new mix.
	if err := s.concepts.Update(ctx, updated); err != nil {
		return MergeOutcome{}, fmt.Errorf("update concept %s: %w", conceptID, err)
	}

	if functionallyChanged {
		if _, err := s.instances.UpdateReviewStatuses(ctx, conceptID, domain.ReviewStatusConceptUpdated); err != nil {
			return MergeOutcome{}, fmt.Errorf("flag instances for concept %s: %w", conceptID, err)
		}
	}
	s.ensureDisplayConfigurations(ctx, conceptID)
	return MergeOutcome{Action: "concept.update"}, nil
}

// archive tombstones the projection: content stays readable, the archival
// flag is set and every dependent instance is flagged for review. The
// archived flag overrides a pending concept-updated review status.
func (s *ConceptMergeService) archive(ctx context.Context, current domain.Concept, snapshot domain.ConceptSnapshot) (MergeOutcome, error) {
	updated := current
	updated.LatestConceptSnapshot = snapshot.ID
	updated.PreviousVersionedSource = current.HasVersionedSource
	updated.HasVersionedSource = snapshot.ID
	updated.IsArchived = true

	if err := s.concepts.Update(ctx, updated); err != nil {
		return MergeOutcome{}, fmt.Errorf("archive concept %s: %w", current.ID, err)
	}
	if _, err := s.instances.UpdateReviewStatuses(ctx, current.ID, domain.ReviewStatusConceptArchived); err != nil {
		return MergeOutcome{}, fmt.Errorf("flag instances for archived concept %s: %w", current.ID, err)
	}
	return MergeOutcome{Action: "concept.archive"}, nil
}

func (s *ConceptMergeService) ensureDisplayConfigurations(ctx context.Context, conceptID string) {
	if s.displayConfigs == nil {
		return
	}
	for _, municipality := range s.municipalities {
		if err := s.displayConfigs.EnsureFor(ctx, conceptID, municipality); err != nil {
			s.log("ensure display configuration failed", "concept", conceptID, "municipality", municipality, "error", err)
		}
	}
}

// ensureAuthorities resolves every competent/executing authority code
// against the codelist and backfills unknown codes from the organization
// registry. Failures are logged and swallowed: the concept merges regardless
// and the organization reference stays unresolved for display purposes.
func (s *ConceptMergeService) ensureAuthorities(ctx context.Context, content domain.ServiceContent) {
	if s.codes == nil {
		return
	}
	seen := make(map[string]struct{})
	for _, uri := range append(append([]string{}, content.CompetentAuthorities...), content.ExecutingAuthorities...) {
		if uri == "" {
			continue
		}
		if _, done := seen[uri]; done {
			continue
		}
		seen[uri] = struct{}{}

		known, err := s.codes.Exists(ctx, uri)
		if err != nil {
			s.log("codelist lookup failed", "uri", uri, "error", err)
			continue
		}
		if known {
			continue
		}
		org, err := s.fetchOrganization(ctx, uri)
		if err != nil {
			s.log("organization registry fetch failed", "uri", uri, "error", err)
			continue
		}
		if err := s.codes.Save(ctx, org); err != nil {
			s.log("codelist insert failed", "uri", uri, "error", err)
		}
	}
}

func (s *ConceptMergeService) fetchOrganization(ctx context.Context, uri string) (domain.Organization, error) {
	if s.orgRegistry == nil {
		return domain.Organization{}, errors.New("organization registry not configured")
	}
	org, err := s.orgRegistry.FetchByURI(ctx, uri)
	if err == nil {
		return org, nil
	}
	org, searchErr := s.orgRegistry.SearchByCode(ctx, uri)
	if searchErr != nil {
		return domain.Organization{}, fmt.Errorf("fetch: %w (search fallback: %v)", err, searchErr)
	}
	return org, nil
}

func (s *ConceptMergeService) log(msg string, attrs ...any) {
	if s.logger == nil {
		return
	}
	fields := []any{"component", "concept_merge"}
	fields = append(fields, attrs...)
	s.logger.Warn(msg, fields...)
}
