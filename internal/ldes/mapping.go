package ldes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

// Wire shapes for dereferenced snapshot documents. Mapping to the typed
// domain model happens here so the merge logic never sees raw bindings.

type wireLanguageString map[string]string

type wireSubEntity struct {
	ID          string             `json:"id"`
	Order       int                `json:"order"`
	Title       wireLanguageString `json:"title,omitempty"`
	Description wireLanguageString `json:"description,omitempty"`
	URL         string             `json:"url,omitempty"`

	Evidence *wireSubEntity  `json:"evidence,omitempty"`
	Websites []wireSubEntity `json:"websites,omitempty"`

	Email        string       `json:"email,omitempty"`
	Telephone    string       `json:"telephone,omitempty"`
	OpeningHours string       `json:"openingHours,omitempty"`
	Address      *wireAddress `json:"address,omitempty"`
}

type wireAddress struct {
	ID           string `json:"id"`
	Street       string `json:"street,omitempty"`
	HouseNumber  string `json:"houseNumber,omitempty"`
	BoxNumber    string `json:"boxNumber,omitempty"`
	ZipCode      string `json:"zipCode,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	Country      string `json:"country,omitempty"`
}

type wireContent struct {
	Title                 wireLanguageString `json:"title,omitempty"`
	Description           wireLanguageString `json:"description,omitempty"`
	AdditionalDescription wireLanguageString `json:"additionalDescription,omitempty"`
	Exception             wireLanguageString `json:"exception,omitempty"`
	Regulation            wireLanguageString `json:"regulation,omitempty"`
	StartDate             string             `json:"startDate,omitempty"`
	EndDate               string             `json:"endDate,omitempty"`
	ProductType           string             `json:"productType,omitempty"`
	TargetAudiences       []string           `json:"targetAudiences,omitempty"`
	Themes                []string           `json:"themes,omitempty"`
	Keywords              []string           `json:"keywords,omitempty"`
	CompetentAuthorities  []string           `json:"competentAuthorities,omitempty"`
	ExecutingAuthorities  []string           `json:"executingAuthorities,omitempty"`
	Requirements          []wireSubEntity    `json:"requirements,omitempty"`
	Procedures            []wireSubEntity    `json:"procedures,omitempty"`
	Costs                 []wireSubEntity    `json:"costs,omitempty"`
	FinancialAdvantages   []wireSubEntity    `json:"financialAdvantages,omitempty"`
	ContactPoints         []wireSubEntity    `json:"contactPoints,omitempty"`
	LegalResources        []wireSubEntity    `json:"legalResources,omitempty"`
	Websites              []wireSubEntity    `json:"websites,omitempty"`
}

type wireConceptSnapshot struct {
	ID              string `json:"id"`
	IsVersionOf     string `json:"isVersionOf"`
	GeneratedAtTime string `json:"generatedAtTime"`
	SnapshotType    string `json:"snapshotType"`
	ProductID       string `json:"productId,omitempty"`
	wireContent
}

type wireInstanceSnapshot struct {
	ID                  string `json:"id"`
	IsVersionOfInstance string `json:"isVersionOf"`
	CreatedBy           string `json:"createdBy"`
	GeneratedAtTime     string `json:"generatedAtTime"`
	IsArchived          bool   `json:"isArchived"`
	ConceptID           string `json:"conceptId,omitempty"`
	wireContent
}

// FetchConceptSnapshot dereferences a concept snapshot document by id and
// maps it to the domain model.
func (c *Client) FetchConceptSnapshot(ctx context.Context, id string) (domain.ConceptSnapshot, error) {
	body, err := c.get(ctx, id)
	if err != nil {
		return domain.ConceptSnapshot{}, err
	}
	return DecodeConceptSnapshot(body)
}

// FetchInstanceSnapshot dereferences an instance snapshot document by id.
func (c *Client) FetchInstanceSnapshot(ctx context.Context, id string) (domain.InstanceSnapshot, error) {
	body, err := c.get(ctx, id)
	if err != nil {
		return domain.InstanceSnapshot{}, err
	}
	return DecodeInstanceSnapshot(body)
}

func DecodeConceptSnapshot(body []byte) (domain.ConceptSnapshot, error) {
	var wire wireConceptSnapshot
	if err := json.Unmarshal(body, &wire); err != nil {
		return domain.ConceptSnapshot{}, fmt.Errorf("decode concept snapshot: %w", err)
	}
	generatedAt, err := parseGeneratedAtTime(wire.GeneratedAtTime)
	if err != nil {
		return domain.ConceptSnapshot{}, err
	}
	snapshotType := domain.SnapshotType(strings.ToUpper(strings.TrimSpace(wire.SnapshotType)))
	if snapshotType == "" {
		snapshotType = domain.SnapshotTypeNormal
	}
	snapshot := domain.ConceptSnapshot{
		ID:              strings.TrimSpace(wire.ID),
		IsVersionOf:     strings.TrimSpace(wire.IsVersionOf),
		GeneratedAtTime: generatedAt,
		SnapshotType:    snapshotType,
		ProductID:       strings.TrimSpace(wire.ProductID),
		Content:         wire.wireContent.toDomain(),
	}
	if err := snapshot.Validate(); err != nil {
		return domain.ConceptSnapshot{}, fmt.Errorf("concept snapshot %s: %w", snapshot.ID, err)
	}
	return snapshot, nil
}

func DecodeInstanceSnapshot(body []byte) (domain.InstanceSnapshot, error) {
	var wire wireInstanceSnapshot
	if err := json.Unmarshal(body, &wire); err != nil {
		return domain.InstanceSnapshot{}, fmt.Errorf("decode instance snapshot: %w", err)
	}
	generatedAt, err := parseGeneratedAtTime(wire.GeneratedAtTime)
	if err != nil {
		return domain.InstanceSnapshot{}, err
	}
	snapshot := domain.InstanceSnapshot{
		ID:                  strings.TrimSpace(wire.ID),
		IsVersionOfInstance: strings.TrimSpace(wire.IsVersionOfInstance),
		CreatedBy:           strings.TrimSpace(wire.CreatedBy),
		GeneratedAtTime:     generatedAt,
		IsArchived:          wire.IsArchived,
		ConceptID:           strings.TrimSpace(wire.ConceptID),
		Content:             wire.wireContent.toDomain(),
	}
	if err := snapshot.Validate(); err != nil {
		return domain.InstanceSnapshot{}, fmt.Errorf("instance snapshot %s: %w", snapshot.ID, err)
	}
	return snapshot, nil
}

// parseGeneratedAtTime accepts registry timestamps of varying fractional
// precision and normalizes them to a fixed comparable representation.
func parseGeneratedAtTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("generatedAtTime is required")
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse generatedAtTime %q: %w", raw, err)
	}
	return domain.NormalizeGeneratedAtTime(t), nil
}

func (w wireContent) toDomain() domain.ServiceContent {
	content := domain.ServiceContent{
		Title:                 toLanguageString(w.Title),
		Description:           toLanguageString(w.Description),
		AdditionalDescription: toLanguageString(w.AdditionalDescription),
		Exception:             toLanguageString(w.Exception),
		Regulation:            toLanguageString(w.Regulation),
		ProductType:           strings.TrimSpace(w.ProductType),
		TargetAudiences:       w.TargetAudiences,
		Themes:                w.Themes,
		Keywords:              w.Keywords,
		CompetentAuthorities:  w.CompetentAuthorities,
		ExecutingAuthorities:  w.ExecutingAuthorities,
	}
	content.StartDate = parseOptionalDate(w.StartDate)
	content.EndDate = parseOptionalDate(w.EndDate)
	for _, r := range w.Requirements {
		requirement := domain.Requirement{
			ID:          r.ID,
			Order:       r.Order,
			Title:       toLanguageString(r.Title),
			Description: toLanguageString(r.Description),
		}
		if r.Evidence != nil {
			requirement.Evidence = &domain.Evidence{
				ID:          r.Evidence.ID,
				Title:       toLanguageString(r.Evidence.Title),
				Description: toLanguageString(r.Evidence.Description),
			}
		}
		content.Requirements = append(content.Requirements, requirement)
	}
	for _, p := range w.Procedures {
		procedure := domain.Procedure{
			ID:          p.ID,
			Order:       p.Order,
			Title:       toLanguageString(p.Title),
			Description: toLanguageString(p.Description),
		}
		for _, site := range p.Websites {
			procedure.Websites = append(procedure.Websites, toWebsite(site))
		}
		content.Procedures = append(content.Procedures, procedure)
	}
	for _, c := range w.Costs {
		content.Costs = append(content.Costs, domain.Cost{
			ID:          c.ID,
			Order:       c.Order,
			Title:       toLanguageString(c.Title),
			Description: toLanguageString(c.Description),
		})
	}
	for _, f := range w.FinancialAdvantages {
		content.FinancialAdvantages = append(content.FinancialAdvantages, domain.FinancialAdvantage{
			ID:          f.ID,
			Order:       f.Order,
			Title:       toLanguageString(f.Title),
			Description: toLanguageString(f.Description),
		})
	}
	for _, cp := range w.ContactPoints {
		contact := domain.ContactPoint{
			ID:           cp.ID,
			Order:        cp.Order,
			URL:          cp.URL,
			Email:        cp.Email,
			Telephone:    cp.Telephone,
			OpeningHours: cp.OpeningHours,
		}
		if cp.Address != nil {
			contact.Address = &domain.Address{
				ID:           cp.Address.ID,
				Street:       cp.Address.Street,
				HouseNumber:  cp.Address.HouseNumber,
				BoxNumber:    cp.Address.BoxNumber,
				ZipCode:      cp.Address.ZipCode,
				Municipality: cp.Address.Municipality,
				Country:      cp.Address.Country,
			}
		}
		content.ContactPoints = append(content.ContactPoints, contact)
	}
	for _, l := range w.LegalResources {
		content.LegalResources = append(content.LegalResources, domain.LegalResource{
			ID:          l.ID,
			Order:       l.Order,
			Title:       toLanguageString(l.Title),
			Description: toLanguageString(l.Description),
			URL:         l.URL,
		})
	}
	for _, site := range w.Websites {
		content.Websites = append(content.Websites, toWebsite(site))
	}
	return content
}

func toWebsite(w wireSubEntity) domain.Website {
	return domain.Website{
		ID:          w.ID,
		Order:       w.Order,
		Title:       toLanguageString(w.Title),
		Description: toLanguageString(w.Description),
		URL:         w.URL,
	}
}

func toLanguageString(w wireLanguageString) domain.LanguageString {
	if len(w) == 0 {
		return nil
	}
	out := make(domain.LanguageString, len(w))
	for tag, text := range w {
		out[domain.LanguageVariant(strings.ToLower(strings.TrimSpace(tag)))] = text
	}
	return out
}

func parseOptionalDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
