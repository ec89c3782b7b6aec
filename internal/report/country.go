package report

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/contactscan/internal/model"
)

var countryNames = map[model.CountryHint]string{
	model.CountryAny: "any country",
	model.CountryUS:  "united states",
	model.CountryBR:  "brazil",
	model.CountryUK:  "united kingdom",
	model.CountryDE:  "germany",
	model.CountryFR:  "france",
}

// CountryLabel returns a display name such as "Brazil (+55)".
func CountryLabel(hint model.CountryHint) string {
	name, ok := countryNames[hint]
	if !ok {
		name = string(hint)
	}
	label := cases.Title(language.English).String(name)
	if code := hint.CallingCode(); code != "" {
		label += " (+" + code + ")"
	}
	return label
}
