package sync

import (
	"sort"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

// IsFunctionallyChanged reports whether two versions of the same conceptual
// entity differ in meaning-bearing content: title, description, or the
// ordered financial-advantage sub-entities. Only the currently-presented
// language variant is compared, so text that merely moved between generated
// and explicit variants without changing content is not a functional change.
// Technical-only changes (provenance, timestamps, reordering that does not
// change displayed order) never count.
func IsFunctionallyChanged(previousID string, previous domain.ServiceContent, nextID string, next domain.ServiceContent, chosen domain.ChosenForm) bool {
	if previousID != "" && previousID == nextID {
		return false
	}
	if PresentedText(previous.Title, chosen) != PresentedText(next.Title, chosen) {
		return true
	}
	if PresentedText(previous.Description, chosen) != PresentedText(next.Description, chosen) {
		return true
	}
	return financialAdvantagesChanged(previous.FinancialAdvantages, next.FinancialAdvantages, chosen)
}

func financialAdvantagesChanged(previous, next []domain.FinancialAdvantage, chosen domain.ChosenForm) bool {
	if len(previous) != len(next) {
		return true
	}
	prevSorted := sortedByOrder(previous)
	nextSorted := sortedByOrder(next)
	for i := range prevSorted {
		if PresentedText(prevSorted[i].Title, chosen) != PresentedText(nextSorted[i].Title, chosen) {
			return true
		}
		if PresentedText(prevSorted[i].Description, chosen) != PresentedText(nextSorted[i].Description, chosen) {
			return true
		}
	}
	return false
}

func sortedByOrder(in []domain.FinancialAdvantage) []domain.FinancialAdvantage {
	out := make([]domain.FinancialAdvantage, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
