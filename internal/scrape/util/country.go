package util

import "strings"

type countryInfo struct {
	code    string
	aliases []string
}

var countries = map[string]countryInfo{
	"canada":         {code: "ca"},
	"germany":        {code: "de", aliases: []string{"deutschland"}},
	"ireland":        {code: "ie"},
	"uk":             {code: "gb", aliases: []string{"united kingdom", "great britain", "england", "scotland", "wales"}},
	"united kingdom": {code: "gb", aliases: []string{"uk", "great britain", "england", "scotland", "wales"}},
	"portugal":       {code: "pt"},
	"new zealand":    {code: "nz", aliases: []string{"aotearoa"}},
	"netherlands":    {code: "nl", aliases: []string{"holland"}},
	"australia":      {code: "au"},
	"united states":  {code: "us", aliases: []string{"usa"}},
	"usa":            {code: "us", aliases: []string{"united states"}},
}

// CountryCode maps a country name to its lower-case ISO 3166 alpha-2 code,
// or "" when unknown.
func CountryCode(name string) string {
	return countries[Fold(name)].code
}

// MatchesCountry reports whether a free-form location mentions country.
func MatchesCountry(location, country string) bool {
	loc := Fold(location)
	c := Fold(country)
	if loc == "" || c == "" {
		return false
	}
	if strings.Contains(loc, c) {
		return true
	}
	return ContainsAny(loc, countries[c].aliases)
}
