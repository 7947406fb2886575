package domain

import (
	"errors"
	"fmt"
	"time"
)

// ServiceContent is the shared content shape of concepts, instances and
// their snapshots: language-tagged texts plus ordered sub-entities.
type ServiceContent struct {
	Title                 LanguageString
	Description           LanguageString
	AdditionalDescription LanguageString
	Exception             LanguageString
	Regulation            LanguageString
	StartDate             *time.Time
	EndDate               *time.Time
	ProductType           string
	TargetAudiences       []string
	Themes                []string
	Keywords              []string
	CompetentAuthorities  []string
	ExecutingAuthorities  []string
	Requirements          []Requirement
	Procedures            []Procedure
	Costs                 []Cost
	FinancialAdvantages   []FinancialAdvantage
	ContactPoints         []ContactPoint
	LegalResources        []LegalResource
	Websites              []Website
}

// CopyWithNewIDs deep-copies the content, assigning a freshly generated
// identity to every sub-entity. Order and text are preserved. Sub-entities
// have no identity meaning outside their parent, so copies never share ids
// with the source.
func (c ServiceContent) CopyWithNewIDs(newID func() string) ServiceContent {
	out := c
	out.Title = c.Title.Clone()
	out.Description = c.Description.Clone()
	out.AdditionalDescription = c.AdditionalDescription.Clone()
	out.Exception = c.Exception.Clone()
	out.Regulation = c.Regulation.Clone()
	out.TargetAudiences = cloneStrings(c.TargetAudiences)
	out.Themes = cloneStrings(c.Themes)
	out.Keywords = cloneStrings(c.Keywords)
	out.CompetentAuthorities = cloneStrings(c.CompetentAuthorities)
	out.ExecutingAuthorities = cloneStrings(c.ExecutingAuthorities)
	if c.StartDate != nil {
		start := *c.StartDate
		out.StartDate = &start
	}
	if c.EndDate != nil {
		end := *c.EndDate
		out.EndDate = &end
	}
	if c.Requirements != nil {
		out.Requirements = make([]Requirement, len(c.Requirements))
		for i, r := range c.Requirements {
			out.Requirements[i] = r.clone(newID)
		}
	}
	if c.Procedures != nil {
		out.Procedures = make([]Procedure, len(c.Procedures))
		for i, p := range c.Procedures {
			out.Procedures[i] = p.clone(newID)
		}
	}
	if c.Costs != nil {
		out.Costs = make([]Cost, len(c.Costs))
		for i, cost := range c.Costs {
			out.Costs[i] = cost.clone(newID)
		}
	}
	if c.FinancialAdvantages != nil {
		out.FinancialAdvantages = make([]FinancialAdvantage, len(c.FinancialAdvantages))
		for i, f := range c.FinancialAdvantages {
			out.FinancialAdvantages[i] = f.clone(newID)
		}
	}
	if c.ContactPoints != nil {
		out.ContactPoints = make([]ContactPoint, len(c.ContactPoints))
		for i, cp := range c.ContactPoints {
			out.ContactPoints[i] = cp.clone(newID)
		}
	}
	if c.LegalResources != nil {
		out.LegalResources = make([]LegalResource, len(c.LegalResources))
		for i, l := range c.LegalResources {
			out.LegalResources[i] = l.clone(newID)
		}
	}
	out.Websites = cloneWebsites(c.Websites, newID)
	return out
}

// SubEntityIDs collects the ids of every sub-entity, including nested
// evidence, addresses and procedure websites.
func (c ServiceContent) SubEntityIDs() []string {
	var ids []string
	for _, r := range c.Requirements {
		ids = append(ids, r.ID)
		if r.Evidence != nil {
			ids = append(ids, r.Evidence.ID)
		}
	}
	for _, p := range c.Procedures {
		ids = append(ids, p.ID)
		for _, w := range p.Websites {
			ids = append(ids, w.ID)
		}
	}
	for _, cost := range c.Costs {
		ids = append(ids, cost.ID)
	}
	for _, f := range c.FinancialAdvantages {
		ids = append(ids, f.ID)
	}
	for _, cp := range c.ContactPoints {
		ids = append(ids, cp.ID)
		if cp.Address != nil {
			ids = append(ids, cp.Address.ID)
		}
	}
	for _, l := range c.LegalResources {
		ids = append(ids, l.ID)
	}
	for _, w := range c.Websites {
		ids = append(ids, w.ID)
	}
	return ids
}

func (c ServiceContent) validateOrders() error {
	if err := uniqueOrders("requirements", len(c.Requirements), func(i int) int { return c.Requirements[i].Order }); err != nil {
		return err
	}
	if err := uniqueOrders("procedures", len(c.Procedures), func(i int) int { return c.Procedures[i].Order }); err != nil {
		return err
	}
	if err := uniqueOrders("costs", len(c.Costs), func(i int) int { return c.Costs[i].Order }); err != nil {
		return err
	}
	if err := uniqueOrders("financial advantages", len(c.FinancialAdvantages), func(i int) int { return c.FinancialAdvantages[i].Order }); err != nil {
		return err
	}
	if err := uniqueOrders("contact points", len(c.ContactPoints), func(i int) int { return c.ContactPoints[i].Order }); err != nil {
		return err
	}
	if err := uniqueOrders("legal resources", len(c.LegalResources), func(i int) int { return c.LegalResources[i].Order }); err != nil {
		return err
	}
	return uniqueOrders("websites", len(c.Websites), func(i int) int { return c.Websites[i].Order })
}

func uniqueOrders(collection string, n int, order func(int) int) error {
	if n < 2 {
		return nil
	}
	seen := make(map[int]struct{}, n)
	for i := 0; i < n; i++ {
		o := order(i)
		if _, dup := seen[o]; dup {
			return fmt.Errorf("%s: duplicate order %d", collection, o)
		}
		seen[o] = struct{}{}
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

var errGeneratedAtTimeRequired = errors.New("generated at time is required")

// NormalizeGeneratedAtTime converts registry timestamps of varying
// fractional-second precision to a fixed, comparable representation.
func NormalizeGeneratedAtTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
