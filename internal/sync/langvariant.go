package sync

import "github.com/pubcat-labs/pubcat-go/internal/domain"

// SelectVariant decides which Dutch language variant to present, given the
// municipality's formal/informal choice and the variants actually present.
//
// Informal requested: explicit informal, else generated informal, else nl.
// Formal requested (the default): explicit formal; else generated formal,
// but only when an explicit informal variant coexists, since a generated
// formal text is only a trustworthy stand-in when the source was genuinely
// informal. Otherwise the language-neutral nl text.
func SelectVariant(available domain.LanguageString, chosen domain.ChosenForm) domain.LanguageVariant {
	if chosen == domain.ChosenFormInformal {
		if available.Has(domain.VariantInformal) {
			return domain.VariantInformal
		}
		if available.Has(domain.VariantGeneratedInformal) {
			return domain.VariantGeneratedInformal
		}
		return domain.VariantNL
	}

	if available.Has(domain.VariantFormal) {
		return domain.VariantFormal
	}
	if available.Has(domain.VariantGeneratedFormal) && available.Has(domain.VariantInformal) {
		return domain.VariantGeneratedFormal
	}
	return domain.VariantNL
}

// PresentedText resolves the active variant and returns its text.
func PresentedText(text domain.LanguageString, chosen domain.ChosenForm) string {
	return text.Get(SelectVariant(text, chosen))
}
