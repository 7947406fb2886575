package domain

import (
	"strconv"
	"testing"
	"time"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "new-" + strconv.Itoa(n)
	}
}

func TestCopyWithNewIDs_RegeneratesEverySubEntityID(t *testing.T) {
	content := ServiceContent{
		Title: LanguageString{VariantNL: "Parkeerkaart"},
		Requirements: []Requirement{
			{ID: "req-1", Order: 1, Evidence: &Evidence{ID: "ev-1"}},
			{ID: "req-2", Order: 2},
		},
		Procedures: []Procedure{
			{ID: "proc-1", Order: 1, Websites: []Website{{ID: "web-1", Order: 1, URL: "https://example.org"}}},
		},
		Costs:               []Cost{{ID: "cost-1", Order: 1}},
		FinancialAdvantages: []FinancialAdvantage{{ID: "fa-1", Order: 1}},
		ContactPoints:       []ContactPoint{{ID: "cp-1", Order: 1, Address: &Address{ID: "addr-1"}}},
		LegalResources:      []LegalResource{{ID: "lr-1", Order: 1}},
		Websites:            []Website{{ID: "web-2", Order: 1}},
	}

	sourceIDs := map[string]struct{}{}
	for _, id := range content.SubEntityIDs() {
		sourceIDs[id] = struct{}{}
	}
	if len(sourceIDs) != 10 {
		t.Fatalf("expected 10 source sub-entity ids, got %d", len(sourceIDs))
	}

	copied := content.CopyWithNewIDs(sequentialIDs())
	copiedIDs := copied.SubEntityIDs()
	if len(copiedIDs) != 10 {
		t.Fatalf("expected 10 copied sub-entity ids, got %d", len(copiedIDs))
	}
	for _, id := range copiedIDs {
		if _, shared := sourceIDs[id]; shared {
			t.Fatalf("copied sub-entity kept source id %q", id)
		}
	}
	if copied.Requirements[0].Order != 1 || copied.Requirements[1].Order != 2 {
		t.Fatalf("copy changed requirement orders: %+v", copied.Requirements)
	}
	if got := copied.Procedures[0].Websites[0].URL; got != "https://example.org" {
		t.Fatalf("copy lost website url, got %q", got)
	}
}

func TestCopyWithNewIDs_DoesNotAliasSource(t *testing.T) {
	content := ServiceContent{
		Title:        LanguageString{VariantNL: "origineel"},
		Requirements: []Requirement{{ID: "req-1", Order: 1, Title: LanguageString{VariantNL: "voorwaarde"}}},
	}
	copied := content.CopyWithNewIDs(sequentialIDs())
	copied.Title[VariantNL] = "gewijzigd"
	copied.Requirements[0].Title[VariantNL] = "anders"

	if content.Title[VariantNL] != "origineel" {
		t.Fatalf("copy aliased title map")
	}
	if content.Requirements[0].Title[VariantNL] != "voorwaarde" {
		t.Fatalf("copy aliased requirement title map")
	}
}

func TestConceptSnapshotValidate(t *testing.T) {
	snapshot := ConceptSnapshot{
		ID:              "https://registry.example.org/snapshot/1",
		IsVersionOf:     "https://registry.example.org/concept/1",
		GeneratedAtTime: time.Now(),
		SnapshotType:    SnapshotTypeNormal,
	}
	if err := snapshot.Validate(); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	missingTime := snapshot
	missingTime.GeneratedAtTime = time.Time{}
	if err := missingTime.Validate(); err == nil {
		t.Fatalf("expected error for missing generatedAtTime")
	}

	duplicateOrders := snapshot
	duplicateOrders.Content.Costs = []Cost{{ID: "c1", Order: 1}, {ID: "c2", Order: 1}}
	if err := duplicateOrders.Validate(); err == nil {
		t.Fatalf("expected error for duplicate sub-entity orders")
	}
}

func TestNormalizeGeneratedAtTime(t *testing.T) {
	precise := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	coarse := time.Date(2024, 3, 1, 11, 0, 0, 123456000, time.FixedZone("CET", 3600))

	if !NormalizeGeneratedAtTime(precise).Equal(NormalizeGeneratedAtTime(coarse)) {
		t.Fatalf("timestamps differing only in sub-microsecond precision and zone should normalize equal")
	}
	if got := NormalizeGeneratedAtTime(precise).Nanosecond(); got != 123456000 {
		t.Fatalf("expected microsecond truncation, got %d ns", got)
	}
}

func TestConceptRecordsSnapshot(t *testing.T) {
	concept := Concept{HasVersionedSource: "s2", PreviousVersionedSource: "s1"}
	if !concept.RecordsSnapshot("s2") || !concept.RecordsSnapshot("s1") {
		t.Fatalf("recorded snapshots not recognized")
	}
	if concept.RecordsSnapshot("s3") || concept.RecordsSnapshot("") {
		t.Fatalf("unrecorded snapshot misreported")
	}
}
