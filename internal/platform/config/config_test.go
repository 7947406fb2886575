package config

import (
	"testing"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

const sample = `
municipalities:
  - uri: https://data.example.org/bestuurseenheid/gent
    name: Gent
    chosenForm: informal
  - uri: https://data.example.org/bestuurseenheid/aalst
    name: Aalst
    chosenForm: formal
  - uri: https://data.example.org/bestuurseenheid/ronse
    name: Ronse
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	uris := cfg.MunicipalityURIs()
	if len(uris) != 3 || uris[0] != "https://data.example.org/bestuurseenheid/gent" {
		t.Fatalf("unexpected uris: %v", uris)
	}

	if got := cfg.ChosenFormFor("https://data.example.org/bestuurseenheid/gent"); got != domain.ChosenFormInformal {
		t.Fatalf("gent chosen form=%q", got)
	}
	if got := cfg.ChosenFormFor("https://data.example.org/bestuurseenheid/aalst"); got != domain.ChosenFormFormal {
		t.Fatalf("aalst chosen form=%q", got)
	}
	if got := cfg.ChosenFormFor("https://data.example.org/bestuurseenheid/ronse"); got != domain.ChosenFormNone {
		t.Fatalf("unset chosen form=%q", got)
	}
	if got := cfg.ChosenFormFor("https://data.example.org/bestuurseenheid/onbekend"); got != domain.ChosenFormNone {
		t.Fatalf("unknown municipality chosen form=%q", got)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty list":      `municipalities: []`,
		"missing uri":     "municipalities:\n  - name: Gent",
		"bad chosen form": "municipalities:\n  - uri: https://x\n    chosenForm: casual",
		"duplicate uri":   "municipalities:\n  - uri: https://x\n  - uri: https://x",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
