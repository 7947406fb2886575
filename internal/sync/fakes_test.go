package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
	"github.com/pubcat-labs/pubcat-go/internal/repo"
)

// In-memory repository fakes backing the engine tests.

type fakeConceptRepo struct {
	concepts map[string]domain.Concept
	updates  int
}

func newFakeConceptRepo() *fakeConceptRepo {
	return &fakeConceptRepo{concepts: map[string]domain.Concept{}}
}

func (f *fakeConceptRepo) FindByID(ctx context.Context, id string) (domain.Concept, error) {
	concept, ok := f.concepts[id]
	if !ok {
		return domain.Concept{}, repo.ErrNotFound
	}
	return concept, nil
}

func (f *fakeConceptRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.concepts[id]
	return ok, nil
}

func (f *fakeConceptRepo) Save(ctx context.Context, concept domain.Concept) error {
	if _, ok := f.concepts[concept.ID]; ok {
		return fmt.Errorf("concept %s already exists", concept.ID)
	}
	f.concepts[concept.ID] = concept
	return nil
}

func (f *fakeConceptRepo) Update(ctx context.Context, concept domain.Concept) error {
	if _, ok := f.concepts[concept.ID]; !ok {
		return repo.ErrNotFound
	}
	f.concepts[concept.ID] = concept
	f.updates++
	return nil
}

type fakeInstanceRepo struct {
	instances  map[string]domain.Instance
	tombstones map[string]domain.Tombstone
}

func newFakeInstanceRepo() *fakeInstanceRepo {
	return &fakeInstanceRepo{
		instances:  map[string]domain.Instance{},
		tombstones: map[string]domain.Tombstone{},
	}
}

func (f *fakeInstanceRepo) FindByID(ctx context.Context, id string) (domain.Instance, error) {
	instance, ok := f.instances[id]
	if !ok {
		return domain.Instance{}, repo.ErrNotFound
	}
	return instance, nil
}

func (f *fakeInstanceRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.instances[id]
	return ok, nil
}

func (f *fakeInstanceRepo) Save(ctx context.Context, instance domain.Instance) error {
	if _, ok := f.instances[instance.ID]; ok {
		return fmt.Errorf("instance %s already exists", instance.ID)
	}
	f.instances[instance.ID] = instance
	return nil
}

func (f *fakeInstanceRepo) Update(ctx context.Context, instance domain.Instance) error {
	if _, ok := f.instances[instance.ID]; !ok {
		return repo.ErrNotFound
	}
	f.instances[instance.ID] = instance
	return nil
}

func (f *fakeInstanceRepo) Delete(ctx context.Context, id string, deletedAt time.Time) error {
	instance, ok := f.instances[id]
	if !ok {
		return repo.ErrNotFound
	}
	tombstone := domain.Tombstone{ID: id, FormerType: "public-service", DeletedAt: deletedAt}
	if instance.PublicationStatus != domain.PublicationStatusNone {
		tombstone.IsPublishedVersionOf = id
	}
	delete(f.instances, id)
	f.tombstones[id] = tombstone
	return nil
}

func (f *fakeInstanceRepo) IsDeleted(ctx context.Context, id string) (bool, error) {
	_, ok := f.tombstones[id]
	return ok, nil
}

func (f *fakeInstanceRepo) Recreate(ctx context.Context, instance domain.Instance) error {
	if _, ok := f.tombstones[instance.ID]; !ok {
		return errors.New("recreate requires a tombstoned id")
	}
	f.instances[instance.ID] = instance
	return nil
}

func (f *fakeInstanceRepo) UpdateReviewStatuses(ctx context.Context, conceptID string, status domain.ReviewStatus) (int64, error) {
	var n int64
	for id, instance := range f.instances {
		if instance.ConceptID != conceptID {
			continue
		}
		instance.ReviewStatus = status
		f.instances[id] = instance
		n++
	}
	return n, nil
}

func (f *fakeInstanceRepo) countForConcept(ctx context.Context, conceptID string) (int64, error) {
	var n int64
	for _, instance := range f.instances {
		if instance.ConceptID == conceptID {
			n++
		}
	}
	return n, nil
}

type fakeConceptSnapshotRepo struct {
	snapshots map[string]domain.ConceptSnapshot
}

func newFakeConceptSnapshotRepo(snapshots ...domain.ConceptSnapshot) *fakeConceptSnapshotRepo {
	f := &fakeConceptSnapshotRepo{snapshots: map[string]domain.ConceptSnapshot{}}
	for _, s := range snapshots {
		f.snapshots[s.ID] = s
	}
	return f
}

func (f *fakeConceptSnapshotRepo) FindByID(ctx context.Context, id string) (domain.ConceptSnapshot, error) {
	snapshot, ok := f.snapshots[id]
	if !ok {
		return domain.ConceptSnapshot{}, repo.ErrNotFound
	}
	return snapshot, nil
}

func (f *fakeConceptSnapshotRepo) Save(ctx context.Context, snapshot domain.ConceptSnapshot) error {
	f.snapshots[snapshot.ID] = snapshot
	return nil
}

func (f *fakeConceptSnapshotRepo) MaxGeneratedAtTimeFor(ctx context.Context, conceptID string) (time.Time, error) {
	var max time.Time
	for _, s := range f.snapshots {
		if s.IsVersionOf == conceptID && s.GeneratedAtTime.After(max) {
			max = s.GeneratedAtTime
		}
	}
	return max, nil
}

type fakeInstanceSnapshotRepo struct {
	snapshots map[string]domain.InstanceSnapshot
	processed map[string]time.Time
}

func newFakeInstanceSnapshotRepo(snapshots ...domain.InstanceSnapshot) *fakeInstanceSnapshotRepo {
	f := &fakeInstanceSnapshotRepo{
		snapshots: map[string]domain.InstanceSnapshot{},
		processed: map[string]time.Time{},
	}
	for _, s := range snapshots {
		f.snapshots[s.ID] = s
	}
	return f
}

func (f *fakeInstanceSnapshotRepo) FindByID(ctx context.Context, id string) (domain.InstanceSnapshot, error) {
	snapshot, ok := f.snapshots[id]
	if !ok {
		return domain.InstanceSnapshot{}, repo.ErrNotFound
	}
	return snapshot, nil
}

func (f *fakeInstanceSnapshotRepo) Save(ctx context.Context, snapshot domain.InstanceSnapshot) error {
	f.snapshots[snapshot.ID] = snapshot
	return nil
}

func (f *fakeInstanceSnapshotRepo) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	f.processed[id] = processedAt
	return nil
}

func (f *fakeInstanceSnapshotRepo) IsProcessed(ctx context.Context, id string) (bool, error) {
	_, ok := f.processed[id]
	return ok, nil
}

func (f *fakeInstanceSnapshotRepo) HasNewerProcessedInstanceSnapshot(ctx context.Context, snapshotID string, instanceID string) (bool, error) {
	this, ok := f.snapshots[snapshotID]
	if !ok {
		return false, repo.ErrNotFound
	}
	for id := range f.processed {
		other, ok := f.snapshots[id]
		if !ok || other.IsVersionOfInstance != instanceID {
			continue
		}
		if other.GeneratedAtTime.After(this.GeneratedAtTime) {
			return true, nil
		}
	}
	return false, nil
}

type fakeDisplayConfigRepo struct {
	rows        map[string]domain.ConceptDisplayConfiguration
	countActive func(ctx context.Context, conceptID string) (int64, error)
	ensures     int
	syncs       []string
}

func newFakeDisplayConfigRepo(instances *fakeInstanceRepo) *fakeDisplayConfigRepo {
	f := &fakeDisplayConfigRepo{rows: map[string]domain.ConceptDisplayConfiguration{}}
	if instances != nil {
		f.countActive = instances.countForConcept
	}
	return f
}

func displayKey(conceptID, municipality string) string {
	return conceptID + "|" + municipality
}

func (f *fakeDisplayConfigRepo) EnsureFor(ctx context.Context, conceptID string, municipality string) error {
	key := displayKey(conceptID, municipality)
	f.ensures++
	if _, ok := f.rows[key]; ok {
		return nil
	}
	f.rows[key] = domain.ConceptDisplayConfiguration{
		ID:           "config/" + key,
		UUID:         key,
		ConceptID:    conceptID,
		Municipality: municipality,
		ConceptIsNew: true,
	}
	return nil
}

func (f *fakeDisplayConfigRepo) SyncInstantiatedFlag(ctx context.Context, conceptID string) error {
	f.syncs = append(f.syncs, conceptID)
	if f.countActive == nil {
		return nil
	}
	active, err := f.countActive(ctx, conceptID)
	if err != nil {
		return err
	}
	for key, row := range f.rows {
		if row.ConceptID != conceptID {
			continue
		}
		row.ConceptIsInstantiated = active > 0
		f.rows[key] = row
	}
	return nil
}

type fakeCodeRepo struct {
	orgs map[string]domain.Organization
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{orgs: map[string]domain.Organization{}}
}

func (f *fakeCodeRepo) Exists(ctx context.Context, uri string) (bool, error) {
	_, ok := f.orgs[uri]
	return ok, nil
}

func (f *fakeCodeRepo) Save(ctx context.Context, org domain.Organization) error {
	f.orgs[org.URI] = org
	return nil
}

type fakeOrgRegistry struct {
	byURI     map[string]domain.Organization
	byCode    map[string]domain.Organization
	fetchErrs int
}

func (f *fakeOrgRegistry) FetchByURI(ctx context.Context, uri string) (domain.Organization, error) {
	if org, ok := f.byURI[uri]; ok {
		return org, nil
	}
	f.fetchErrs++
	return domain.Organization{}, errors.New("organization not found")
}

func (f *fakeOrgRegistry) SearchByCode(ctx context.Context, code string) (domain.Organization, error) {
	if org, ok := f.byCode[code]; ok {
		return org, nil
	}
	return domain.Organization{}, errors.New("no search results")
}

type fakeArchive struct {
	keys []string
	fail bool
}

func (f *fakeArchive) Put(ctx context.Context, key string, payload []byte) error {
	if f.fail {
		return errors.New("object store unavailable")
	}
	f.keys = append(f.keys, key)
	return nil
}

type auditEntry struct {
	Action     string
	ResourceID string
}

type fakeAudit struct {
	entries []auditEntry
}

func (f *fakeAudit) Append(ctx context.Context, action, resourceType, resourceID string, payload map[string]any) error {
	f.entries = append(f.entries, auditEntry{Action: action, ResourceID: resourceID})
	return nil
}

// test id generators

func fixedUUIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func mustTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		panic(err)
	}
	return domain.NormalizeGeneratedAtTime(t)
}
