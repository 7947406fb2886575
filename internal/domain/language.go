package domain

import "sort"

// LanguageVariant tags one Dutch rendering of a text value.
type LanguageVariant string

const (
	VariantNL                LanguageVariant = "nl"
	VariantFormal            LanguageVariant = "nl-be-x-formal"
	VariantInformal          LanguageVariant = "nl-be-x-informal"
	VariantGeneratedFormal   LanguageVariant = "nl-be-x-generated-formal"
	VariantGeneratedInformal LanguageVariant = "nl-be-x-generated-informal"
)

// ChosenForm is a municipality's preference between formal and informal
// address. The zero value means no explicit choice and defaults to formal.
type ChosenForm string

const (
	ChosenFormNone     ChosenForm = ""
	ChosenFormFormal   ChosenForm = "formal"
	ChosenFormInformal ChosenForm = "informal"
)

// LanguageString holds the language-tagged renderings of one text value.
type LanguageString map[LanguageVariant]string

func (l LanguageString) Get(v LanguageVariant) string {
	if l == nil {
		return ""
	}
	return l[v]
}

// Has reports whether the variant is present with non-empty text.
func (l LanguageString) Has(v LanguageVariant) bool {
	return l.Get(v) != ""
}

// Variants returns the variants present with non-empty text, sorted for
// deterministic iteration.
func (l LanguageString) Variants() []LanguageVariant {
	if len(l) == 0 {
		return nil
	}
	out := make([]LanguageVariant, 0, len(l))
	for v, text := range l {
		if text == "" {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (l LanguageString) Clone() LanguageString {
	if l == nil {
		return nil
	}
	out := make(LanguageString, len(l))
	for v, text := range l {
		out[v] = text
	}
	return out
}

// IsEmpty reports whether no variant carries text.
func (l LanguageString) IsEmpty() bool {
	for _, text := range l {
		if text != "" {
			return false
		}
	}
	return true
}
