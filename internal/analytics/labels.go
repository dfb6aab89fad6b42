package analytics

import (
	"strings"
	"sync"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	countryQuery     *gountries.Query
	countryQueryOnce sync.Once
)

func countries() *gountries.Query {
	countryQueryOnce.Do(func() {
		countryQuery = gountries.New()
	})
	return countryQuery
}

// CountryName renders a stored country value. ISO alpha codes become the
// common English name; unknown codes are upper-cased and free text is title-cased.
func CountryName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Desconhecido"
	}

	if len(value) == 2 || len(value) == 3 {
		if country, err := countries().FindCountryByAlpha(value); err == nil {
			return country.Name.Common
		}
		if len(value) == 2 {
			return cases.Upper(language.Und).String(value)
		}
	}
	return cases.Title(language.BrazilianPortuguese).String(value)
}
