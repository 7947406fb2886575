package domain

// Sub-entities of a public service description. Each carries an Order that
// is unique within its parent collection and positions it for display.

type Requirement struct {
	ID          string
	Order       int
	Title       LanguageString
	Description LanguageString
	Evidence    *Evidence
}

type Evidence struct {
	ID          string
	Title       LanguageString
	Description LanguageString
}

type Procedure struct {
	ID          string
	Order       int
	Title       LanguageString
	Description LanguageString
	Websites    []Website
}

type Website struct {
	ID          string
	Order       int
	Title       LanguageString
	Description LanguageString
	URL         string
}

type Cost struct {
	ID          string
	Order       int
	Title       LanguageString
	Description LanguageString
}

type FinancialAdvantage struct {
	ID          string
	Order       int
	Title       LanguageString
	Description LanguageString
}

type ContactPoint struct {
	ID           string
	Order        int
	URL          string
	Email        string
	Telephone    string
	OpeningHours string
	Address      *Address
}

type Address struct {
	ID           string
	Street       string
	HouseNumber  string
	BoxNumber    string
	ZipCode      string
	Municipality string
	Country      string
}

type LegalResource struct {
	ID          string
	Order       int
	Title       LanguageString
	Description LanguageString
	URL         string
}

func (r Requirement) clone(newID func() string) Requirement {
	out := r
	out.ID = newID()
	out.Title = r.Title.Clone()
	out.Description = r.Description.Clone()
	if r.Evidence != nil {
		evidence := Evidence{
			ID:          newID(),
			Title:       r.Evidence.Title.Clone(),
			Description: r.Evidence.Description.Clone(),
		}
		out.Evidence = &evidence
	}
	return out
}

func (p Procedure) clone(newID func() string) Procedure {
	out := p
	out.ID = newID()
	out.Title = p.Title.Clone()
	out.Description = p.Description.Clone()
	out.Websites = cloneWebsites(p.Websites, newID)
	return out
}

func (w Website) clone(newID func() string) Website {
	out := w
	out.ID = newID()
	out.Title = w.Title.Clone()
	out.Description = w.Description.Clone()
	return out
}

func (c Cost) clone(newID func() string) Cost {
	out := c
	out.ID = newID()
	out.Title = c.Title.Clone()
	out.Description = c.Description.Clone()
	return out
}

func (f FinancialAdvantage) clone(newID func() string) FinancialAdvantage {
	out := f
	out.ID = newID()
	out.Title = f.Title.Clone()
	out.Description = f.Description.Clone()
	return out
}

func (c ContactPoint) clone(newID func() string) ContactPoint {
	out := c
	out.ID = newID()
	if c.Address != nil {
		address := *c.Address
		address.ID = newID()
		out.Address = &address
	}
	return out
}

func (l LegalResource) clone(newID func() string) LegalResource {
	out := l
	out.ID = newID()
	out.Title = l.Title.Clone()
	out.Description = l.Description.Clone()
	return out
}

func cloneWebsites(in []Website, newID func() string) []Website {
	if in == nil {
		return nil
	}
	out := make([]Website, len(in))
	for i, w := range in {
		out[i] = w.clone(newID)
	}
	return out
}
