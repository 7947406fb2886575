package sync

import (
	"context"
	"testing"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

const (
	gent    = "https://data.example.org/bestuurseenheid/gent"
	aalst   = "https://data.example.org/bestuurseenheid/aalst"
	orgIGS  = "https://data.example.org/organisatie/igs-westlede"
	orgOCMW = "https://data.example.org/organisatie/ocmw-gent"
)

type conceptMergeFixture struct {
	concepts       *fakeConceptRepo
	snapshots      *fakeConceptSnapshotRepo
	instances      *fakeInstanceRepo
	displayConfigs *fakeDisplayConfigRepo
	codes          *fakeCodeRepo
	orgRegistry    *fakeOrgRegistry
	service        *ConceptMergeService
}

func newConceptMergeFixture(t *testing.T, snapshots ...domain.ConceptSnapshot) *conceptMergeFixture {
	t.Helper()
	f := &conceptMergeFixture{
		concepts:    newFakeConceptRepo(),
		snapshots:   newFakeConceptSnapshotRepo(snapshots...),
		instances:   newFakeInstanceRepo(),
		codes:       newFakeCodeRepo(),
		orgRegistry: &fakeOrgRegistry{},
	}
	f.displayConfigs = newFakeDisplayConfigRepo(f.instances)
	service, err := NewConceptMergeService(nil, ConceptMergeConfig{
		Concepts:       f.concepts,
		Snapshots:      f.snapshots,
		Instances:      f.instances,
		DisplayConfigs: f.displayConfigs,
		Codes:          f.codes,
		OrgRegistry:    f.orgRegistry,
		Municipalities: []string{gent, aalst},
	}, fixedUUIDs("uuid"))
	if err != nil {
		t.Fatalf("new concept merge service: %v", err)
	}
	f.service = service
	return f
}

func normalSnapshot(id, title string, generatedAt string) domain.ConceptSnapshot {
	return domain.ConceptSnapshot{
		ID:              id,
		IsVersionOf:     conceptC,
		GeneratedAtTime: mustTime(generatedAt),
		SnapshotType:    domain.SnapshotTypeNormal,
		ProductID:       "1502",
		Content: domain.ServiceContent{
			Title:       domain.LanguageString{domain.VariantNL: title},
			Description: domain.LanguageString{domain.VariantNL: "beschrijving"},
		},
	}
}

func TestConceptMerge_Materialize(t *testing.T) {
	f := newConceptMergeFixture(t, normalSnapshot("s1", "A", "2024-01-01T00:00:00Z"))

	outcome, err := f.service.Merge(context.Background(), DeltaEntry{SnapshotID: "s1", TargetID: conceptC})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if outcome.Action != "concept.create" {
		t.Fatalf("action=%q, want concept.create", outcome.Action)
	}

	concept := f.concepts.concepts[conceptC]
	if concept.LatestConceptSnapshot != "s1" || concept.HasVersionedSource != "s1" {
		t.Fatalf("lineage not set: %+v", concept)
	}
	if concept.HasLatestFunctionalChange != "s1" {
		t.Fatalf("first version must be the functional baseline, got %q", concept.HasLatestFunctionalChange)
	}
	if got := len(f.displayConfigs.rows); got != 2 {
		t.Fatalf("expected a display configuration per municipality, got %d", got)
	}
}

func TestConceptMerge_FunctionalUpdateFlagsInstances(t *testing.T) {
	f := newConceptMergeFixture(t,
		normalSnapshot("s1", "A", "2024-01-01T00:00:00Z"),
		normalSnapshot("s2", "B", "2024-02-01T00:00:00Z"),
	)
	ctx := context.Background()
	if _, err := f.service.Merge(ctx, DeltaEntry{SnapshotID: "s1", TargetID: conceptC}); err != nil {
		t.Fatalf("merge s1: %v", err)
	}
	f.instances.instances["i1"] = domain.Instance{ID: "i1", UUID: "u1", CreatedBy: gent, ConceptID: conceptC}

	outcome, err := f.service.Merge(ctx, DeltaEntry{SnapshotID: "s2", TargetID: conceptC})
	if err != nil {
		t.Fatalf("merge s2: %v", err)
	}
	if outcome.Action != "concept.update" {
		t.Fatalf("action=%q, want concept.update", outcome.Action)
	}

	concept := f.concepts.concepts[conceptC]
	if concept.Content.Title.Get(domain.VariantNL) != "B" {
		t.Fatalf("projected title=%q, want B", concept.Content.Title.Get(domain.VariantNL))
	}
	if concept.HasLatestFunctionalChange != "s2" {
		t.Fatalf("hasLatestFunctionalChange=%q, want s2", concept.HasLatestFunctionalChange)
	}
	if concept.PreviousVersionedSource != "s1" || concept.HasVersionedSource != "s2" {
		t.Fatalf("lineage pointers wrong: %+v", concept)
	}
	if got := f.instances.instances["i1"].ReviewStatus; got != domain.ReviewStatusConceptUpdated {
		t.Fatalf("instance review status=%q, want concept-updated", got)
	}
}

func TestConceptMerge_TechnicalUpdateDoesNotFlag(t *testing.T) {
	s2 := normalSnapshot("s2", "A", "2024-02-01T00:00:00Z")
	s2.Content.Keywords = []string{"parkeren"} // not meaning-bearing
	f := newConceptMergeFixture(t, normalSnapshot("s1", "A", "2024-01-01T00:00:00Z"), s2)
	ctx := context.Background()
	if _, err := f.service.Merge(ctx, DeltaEntry{SnapshotID: "s1", TargetID: conceptC}); err != nil {
		t.Fatalf("merge s1: %v", err)
	}
	f.instances.instances["i1"] = domain.Instance{ID: "i1", UUID: "u1", CreatedBy: gent, ConceptID: conceptC}

	if _, err := f.service.Merge(ctx, DeltaEntry{SnapshotID: "s2", TargetID: conceptC}); err != nil {
		t.Fatalf("merge s2: %v", err)
	}

	concept := f.concepts.concepts[conceptC]
	if concept.HasLatestFunctionalChange != "s1" {
		t.Fatalf("technical change moved the functional pointer to %q", concept.HasLatestFunctionalChange)
	}
	if len(concept.Content.Keywords) != 1 {
		t.Fatalf("projected content must still be replaced on technical change")
	}
	if got := f.instances.instances["i1"].ReviewStatus; got != domain.ReviewStatusNone {
		t.Fatalf("technical change set review status %q", got)
	}
}

func TestConceptMerge_ArchiveOverridesUpdatedStatus(t *testing.T) {
	deleteSnapshot := domain.ConceptSnapshot{
		ID:              "s3",
		IsVersionOf:     conceptC,
		GeneratedAtTime: mustTime("2024-03-01T00:00:00Z"),
		SnapshotType:    domain.SnapshotTypeDelete,
	}
	f := newConceptMergeFixture(t, normalSnapshot("s1", "A", "2024-01-01T00:00:00Z"), deleteSnapshot)
	ctx := context.Background()
	if _, err := f.service.Merge(ctx, DeltaEntry{SnapshotID: "s1", TargetID: conceptC}); err != nil {
		t.Fatalf("merge s1: %v", err)
	}
	f.instances.instances["i1"] = domain.Instance{
		ID: "i1", UUID: "u1", CreatedBy: gent, ConceptID: conceptC,
		ReviewStatus: domain.ReviewStatusConceptUpdated,
	}

	outcome, err := f.service.Merge(ctx, DeltaEntry{SnapshotID: "s3", TargetID: conceptC})
	if err != nil {
		t.Fatalf("merge delete: %v", err)
	}
	if outcome.Action != "concept.archive" {
		t.Fatalf("action=%q, want concept.archive", outcome.Action)
	}

	concept := f.concepts.concepts[conceptC]
	if !concept.IsArchived {
		t.Fatalf("concept not archived")
	}
	if concept.Content.Title.Get(domain.VariantNL) != "A" {
		t.Fatalf("archival must leave content as-is")
	}
	if got := f.instances.instances["i1"].ReviewStatus; got != domain.ReviewStatusConceptArchived {
		t.Fatalf("review status=%q, want concept-archived override", got)
	}
}

func TestConceptMerge_AuthorityBootstrap(t *testing.T) {
	snapshot := normalSnapshot("s1", "A", "2024-01-01T00:00:00Z")
	snapshot.Content.CompetentAuthorities = []string{orgIGS}
	snapshot.Content.ExecutingAuthorities = []string{orgOCMW, orgIGS}
	f := newConceptMergeFixture(t, snapshot)
	f.orgRegistry.byURI = map[string]domain.Organization{
		orgIGS: {URI: orgIGS, PrefLabel: "IGS Westlede"},
	}
	f.orgRegistry.byCode = map[string]domain.Organization{
		orgOCMW: {URI: orgOCMW, PrefLabel: "OCMW Gent"},
	}

	if _, err := f.service.Merge(context.Background(), DeltaEntry{SnapshotID: "s1", TargetID: conceptC}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, ok := f.codes.orgs[orgIGS]; !ok {
		t.Fatalf("direct lookup result not inserted into codelist")
	}
	if _, ok := f.codes.orgs[orgOCMW]; !ok {
		t.Fatalf("search fallback result not inserted into codelist")
	}
}

func TestConceptMerge_RegistryFailureIsSwallowed(t *testing.T) {
	snapshot := normalSnapshot("s1", "A", "2024-01-01T00:00:00Z")
	snapshot.Content.CompetentAuthorities = []string{"https://data.example.org/organisatie/unknown"}
	f := newConceptMergeFixture(t, snapshot)

	outcome, err := f.service.Merge(context.Background(), DeltaEntry{SnapshotID: "s1", TargetID: conceptC})
	if err != nil {
		t.Fatalf("registry failure must not fail the merge: %v", err)
	}
	if outcome.Action != "concept.create" {
		t.Fatalf("concept must merge despite unresolved organization")
	}
	if len(f.codes.orgs) != 0 {
		t.Fatalf("unresolved organization must not enter the codelist")
	}
}

func TestConceptMerge_DisplayConfigurationEnsureIsIdempotent(t *testing.T) {
	f := newConceptMergeFixture(t,
		normalSnapshot("s1", "A", "2024-01-01T00:00:00Z"),
		normalSnapshot("s2", "B", "2024-02-01T00:00:00Z"),
	)
	ctx := context.Background()
	if _, err := f.service.Merge(ctx, DeltaEntry{SnapshotID: "s1", TargetID: conceptC}); err != nil {
		t.Fatalf("merge s1: %v", err)
	}
	if _, err := f.service.Merge(ctx, DeltaEntry{SnapshotID: "s2", TargetID: conceptC}); err != nil {
		t.Fatalf("merge s2: %v", err)
	}
	if got := len(f.displayConfigs.rows); got != 2 {
		t.Fatalf("repeated merges duplicated display configurations: %d rows", got)
	}
}
