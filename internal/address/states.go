package address

import "strings"

// stateNames maps lowercase US state names to their USPS abbreviations.
// Read-only after init; use StateAbbreviation to look names up.
var stateNames = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"district of columbia": "DC",
	"florida":              "FL",
	"georgia":              "GA",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new hampshire":        "NH",
	"new jersey":           "NJ",
	"new mexico":           "NM",
	"new york":             "NY",
	"north carolina":       "NC",
	"north dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"rhode island":         "RI",
	"south carolina":       "SC",
	"south dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virginia":             "VA",
	"washington":           "WA",
	"west virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
}

// StateAbbreviation returns the USPS abbreviation for a full state name.
// Matching is case-insensitive and ignores surrounding whitespace.
func StateAbbreviation(name string) (string, bool) {
	abbr, ok := stateNames[strings.ToLower(strings.Join(strings.Fields(name), " "))]
	return abbr, ok
}

// stateCodes is the set of USPS abbreviations in stateNames.
var stateCodes = func() map[string]bool {
	codes := make(map[string]bool, len(stateNames))
	for _, abbr := range stateNames {
		codes[abbr] = true
	}
	return codes
}()

// IsKnownState reports whether s is a full state name or a USPS state code,
// ignoring case and surrounding whitespace.
func IsKnownState(s string) bool {
	if _, ok := StateAbbreviation(s); ok {
		return true
	}
	return stateCodes[strings.ToUpper(strings.TrimSpace(s))]
}

// StateNames returns the known full state names in lowercase.
// The returned slice is a copy.
func StateNames() []string {
	names := make([]string, 0, len(stateNames))
	for name := range stateNames {
		names = append(names, name)
	}
	return names
}

// NormalizeState converts a state token to a two-letter code.
// Full names are looked up in the state table; anything else is
// upper-cased and truncated to two characters.
func NormalizeState(s string) string {
	s = strings.TrimSpace(s)
	if abbr, ok := StateAbbreviation(s); ok {
		return abbr
	}
	r := []rune(strings.ToUpper(s))
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r)
}
