package address

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Notes appended to ParsedAddress.ParseNote.
const (
	NoteCityStateZipNotFound = "city/state/zip not found"
	NoteStreetNotFound       = "street address not found"
)

// ScanDirection controls the order in which lines are searched for the
// city/state/ZIP span.
type ScanDirection int

const (
	// ScanReverse searches from the last line towards the first.
	ScanReverse ScanDirection = iota
	// ScanForward searches from the first line towards the last.
	ScanForward
)

func (d ScanDirection) String() string {
	if d == ScanForward {
		return "forward"
	}
	return "reverse"
}

// ParseScanDirection reads "reverse" or "forward". An empty string is reverse.
func ParseScanDirection(s string) (ScanDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reverse":
		return ScanReverse, nil
	case "forward":
		return ScanForward, nil
	default:
		return ScanReverse, fmt.Errorf("unknown scan direction %q", s)
	}
}

var (
	// phoneRe matches US numbers: optional +1, optional parentheses around the
	// area code, space/dash/dot separators, 3+3+4 digits. The guard groups keep
	// the match from starting or ending inside a longer digit run.
	phoneRe = regexp.MustCompile(`(?:^|[^\d+])((?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4})(?:\D|$)`)

	// nameLineRe matches a line made of exactly two capitalized tokens.
	nameLineRe = regexp.MustCompile(`^(\p{Lu}[\p{L}.\-]*)\s+(\p{Lu}[\p{L}.\-]*)$`)

	// wordTokenRe matches word-like tokens for the name fallback.
	wordTokenRe = regexp.MustCompile(`\p{L}[\p{L}'.\-]*`)

	// unitRe finds an apartment/unit designator. Group 1 starts at the keyword.
	unitRe = regexp.MustCompile(`(?i)(?:^|[\s,])((?:apt|apartment|unit|suite|ste)\b\.?|#)`)

	digitRe = regexp.MustCompile(`\d`)
	emailRe = regexp.MustCompile(`\S+@\S+\.\S+`)

	// cityStateZipRe groups: 1 city, 2 state, 3 ZIP, 4 optional +4 suffix.
	cityStateZipRe = regexp.MustCompile(`(?i)(\p{L}[\p{L} .'\-]*?)(?:\s*,\s*|\s+)(` +
		stateAlternation() + `|[a-z]{2,})[\s,]*(\d{5})(-\d{4})?(?:\D|$)`)

	// zipLineRe matches a line holding only a ZIP. Group 1 is the five digits.
	zipLineRe = regexp.MustCompile(`^(\d{5})(?:-\d{4})?$`)

	// stateZipLineRe matches a line holding only "state ZIP". Groups: 1 state,
	// 2 ZIP.
	stateZipLineRe = regexp.MustCompile(`(?i)^(` + stateAlternation() +
		`|[a-z]{2})[\s,]*(\d{5})(?:-\d{4})?$`)
)

// stateAlternation builds a regexp alternation of full state names, longest
// first, so multi-word names win over their first word.
func stateAlternation() string {
	names := StateNames()
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	parts := make([]string, len(names))
	for i, name := range names {
		words := strings.Fields(name)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		parts[i] = strings.Join(words, `\s+`)
	}
	return strings.Join(parts, "|")
}

// SplitLines normalizes line breaks and returns the trimmed, non-blank lines.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FindPhone returns the first US phone number in the lines joined with
// spaces, or "" when none is present.
func FindPhone(lines []string) string {
	m := phoneRe.FindStringSubmatch(strings.Join(lines, " "))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ExtractName derives the recipient name from the first line.
//
// A line of exactly two capitalized tokens is consumed and split into first
// and last name. Otherwise the line is kept; if it has at least two word-like
// tokens the first and last are used, else both names fall back to handle.
func ExtractName(lines []string, handle string) (first, last string, rest []string) {
	if len(lines) == 0 {
		return handle, handle, lines
	}

	if m := nameLineRe.FindStringSubmatch(lines[0]); m != nil {
		return m[1], m[2], lines[1:]
	}

	tokens := wordTokenRe.FindAllString(lines[0], -1)
	if len(tokens) < 2 {
		return handle, handle, lines
	}
	return tokens[0], tokens[len(tokens)-1], lines
}

// CityStateZip is the result of ExtractCityStateZip.
type CityStateZip struct {
	City  string
	State string
	Zip   string
}

// ExtractCityStateZip finds the city, state and ZIP in lines.
//
// The first choice is a "city, state ZIP" span on one line whose state is a
// known name or code. Next comes the one-field-per-line layout (see
// splitCityStateZip). Last, a one-line span with any two-or-more letter state
// token is accepted. Lines are searched in scan order within each stage.
// ok is false when nothing matches, in which case rest is lines unchanged.
func ExtractCityStateZip(lines []string, dir ScanDirection) (csz CityStateZip, rest []string, ok bool) {
	if csz, rest, ok = lineCityStateZip(lines, dir, true); ok {
		return csz, rest, true
	}
	if csz, rest, ok = splitCityStateZip(lines, dir); ok {
		return csz, rest, true
	}
	return lineCityStateZip(lines, dir, false)
}

// scanOrder returns the index of the n-th line to visit.
func scanOrder(n, count int, dir ScanDirection) int {
	if dir == ScanReverse {
		return count - 1 - n
	}
	return n
}

// lineCityStateZip matches a single-line span. The span is cut out of its
// line; any text left on that line stays in place, and the line is dropped
// when nothing is left. With knownOnly set, spans whose state token is not a
// known state are skipped.
func lineCityStateZip(lines []string, dir ScanDirection, knownOnly bool) (CityStateZip, []string, bool) {
	for n := range lines {
		i := scanOrder(n, len(lines), dir)
		line := lines[i]

		loc := cityStateZipRe.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		if knownOnly && !IsKnownState(line[loc[4]:loc[5]]) {
			continue
		}

		csz := CityStateZip{
			City:  NormalizeCity(line[loc[2]:loc[3]]),
			State: NormalizeState(line[loc[4]:loc[5]]),
			Zip:   NormalizeZip(line[loc[6]:loc[7]]),
		}

		end := loc[7]
		if loc[8] >= 0 {
			end = loc[9]
		}
		remainder := trimAddressPart(line[:loc[2]] + " " + line[end:])

		rest := make([]string, 0, len(lines))
		rest = append(rest, lines[:i]...)
		if remainder != "" {
			rest = append(rest, remainder)
		}
		rest = append(rest, lines[i+1:]...)
		return csz, rest, true
	}
	return CityStateZip{}, lines, false
}

// splitCityStateZip reads the layout where the fields sit on their own lines:
//
//	Austin
//	Texas
//	78701
//
// or with state and ZIP sharing the last line ("TX 78701"). The ZIP line is
// found in scan order; the state line must directly precede a bare ZIP line
// and the city line must directly precede the state. At least one of state
// and city is required so a lone five-digit line is not taken for a ZIP.
func splitCityStateZip(lines []string, dir ScanDirection) (CityStateZip, []string, bool) {
	for n := range lines {
		z := scanOrder(n, len(lines), dir)

		var csz CityStateZip
		used := map[int]bool{z: true}
		above := z - 1

		if m := zipLineRe.FindStringSubmatch(lines[z]); m != nil {
			csz.Zip = m[1]
			if above >= 0 && IsKnownState(lines[above]) {
				csz.State = NormalizeState(lines[above])
				used[above] = true
				above--
			}
		} else if m := stateZipLineRe.FindStringSubmatch(lines[z]); m != nil && IsKnownState(m[1]) {
			csz.Zip = m[2]
			csz.State = NormalizeState(m[1])
		} else {
			continue
		}

		if above >= 0 && isCityLine(lines[above]) {
			csz.City = NormalizeCity(lines[above])
			used[above] = true
		}
		if csz.State == "" && csz.City == "" {
			continue
		}

		rest := make([]string, 0, len(lines))
		for i, line := range lines {
			if !used[i] {
				rest = append(rest, line)
			}
		}
		return csz, rest, true
	}
	return CityStateZip{}, lines, false
}

// isCityLine reports whether a line can stand alone as a city name.
func isCityLine(s string) bool {
	return !digitRe.MatchString(s) &&
		!emailRe.MatchString(s) &&
		unitRe.FindStringIndex(s) == nil &&
		!IsKnownState(s)
}

// NormalizeCity collapses whitespace, trims separators and title-cases.
func NormalizeCity(s string) string {
	s = trimAddressPart(strings.Join(strings.Fields(s), " "))
	if s == "" {
		return ""
	}
	// A Caser is stateful; build one per call so Extract stays goroutine-safe.
	return cases.Title(language.AmericanEnglish).String(s)
}

// NormalizeZip left-pads a numeric ZIP to five digits.
func NormalizeZip(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || len(s) >= 5 {
		return s
	}
	return strings.Repeat("0", 5-len(s)) + s
}

// ClassifyStreetLines picks the street line and the unit line.
//
// A line qualifies when it contains a digit that is not part of phone or an
// e-mail address, or when it contains a unit keyword. A keyword that starts
// the line makes the whole line a unit candidate; a digit-bearing street part
// before the keyword is split off as a street candidate. The first candidate
// fills each role and later ones are dropped.
func ClassifyStreetLines(lines []string, phone string) (line1, line2 string) {
	for _, line := range lines {
		if line1 != "" && line2 != "" {
			break
		}

		loc := unitRe.FindStringSubmatchIndex(line)
		if loc == nil {
			if line1 == "" && hasAddressDigit(line, phone) {
				line1 = trimAddressPart(line)
			}
			continue
		}

		street := trimAddressPart(line[:loc[2]])
		if street != "" && hasAddressDigit(street, phone) {
			if line1 == "" {
				line1 = street
			}
			if line2 == "" {
				line2 = trimAddressPart(line[loc[2]:])
			}
			continue
		}

		if line2 == "" {
			line2 = trimAddressPart(line)
		}
	}
	return line1, line2
}

// hasAddressDigit reports whether s has a digit outside the phone number and
// any e-mail address.
func hasAddressDigit(s, phone string) bool {
	if phone != "" {
		s = strings.Replace(s, phone, " ", 1)
	}
	s = emailRe.ReplaceAllString(s, " ")
	return digitRe.MatchString(s)
}

func trimAddressPart(s string) string {
	return strings.Trim(strings.TrimSpace(s), " \t,;")
}
