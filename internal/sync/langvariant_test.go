package sync

import (
	"testing"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

func TestSelectVariant(t *testing.T) {
	cases := []struct {
		name      string
		available domain.LanguageString
		chosen    domain.ChosenForm
		want      domain.LanguageVariant
	}{
		{
			name:      "informal prefers explicit informal",
			available: domain.LanguageString{domain.VariantInformal: "x", domain.VariantGeneratedInformal: "y", domain.VariantNL: "z"},
			chosen:    domain.ChosenFormInformal,
			want:      domain.VariantInformal,
		},
		{
			name:      "informal falls back to generated informal",
			available: domain.LanguageString{domain.VariantGeneratedInformal: "y", domain.VariantNL: "z"},
			chosen:    domain.ChosenFormInformal,
			want:      domain.VariantGeneratedInformal,
		},
		{
			name:      "informal with only formal falls back to nl",
			available: domain.LanguageString{domain.VariantFormal: "x"},
			chosen:    domain.ChosenFormInformal,
			want:      domain.VariantNL,
		},
		{
			name:      "formal prefers explicit formal",
			available: domain.LanguageString{domain.VariantFormal: "x", domain.VariantGeneratedFormal: "y"},
			chosen:    domain.ChosenFormFormal,
			want:      domain.VariantFormal,
		},
		{
			name:      "formal accepts generated formal when informal coexists",
			available: domain.LanguageString{domain.VariantInformal: "x", domain.VariantGeneratedFormal: "y"},
			chosen:    domain.ChosenFormFormal,
			want:      domain.VariantGeneratedFormal,
		},
		{
			name:      "formal with informal only falls back to nl",
			available: domain.LanguageString{domain.VariantInformal: "x"},
			chosen:    domain.ChosenFormFormal,
			want:      domain.VariantNL,
		},
		{
			name:      "formal with generated formal but no informal falls back to nl",
			available: domain.LanguageString{domain.VariantGeneratedFormal: "y", domain.VariantNL: "z"},
			chosen:    domain.ChosenFormFormal,
			want:      domain.VariantNL,
		},
		{
			name:      "unspecified choice defaults to formal rules",
			available: domain.LanguageString{domain.VariantFormal: "x"},
			chosen:    domain.ChosenFormNone,
			want:      domain.VariantFormal,
		},
		{
			name:      "empty variant text counts as absent",
			available: domain.LanguageString{domain.VariantFormal: "", domain.VariantNL: "z"},
			chosen:    domain.ChosenFormFormal,
			want:      domain.VariantNL,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SelectVariant(tc.available, tc.chosen); got != tc.want {
				t.Fatalf("SelectVariant=%q, want %q", got, tc.want)
			}
		})
	}
}
