// Package address extracts structured US postal addresses from free-text
// shipping remarks.
//
// Remarks are typed by operators and arrive in no fixed shape: a name line,
// one or two street lines, a "City, ST 12345" line and a phone number is the
// common case, but lines are often merged, reordered or padded with noise.
// The extractor is a best-effort heuristic. It never fails; anything it cannot
// place is reported in [ParsedAddress.ParseNote].
//
// # Steps
//
// [Extractor.Extract] threads an explicit list of remaining lines through
// four steps, each exported so it can be tested on its own:
//
//  1. [FindPhone] searches the whole remark for a US phone number. The
//     matched text stays in the lines.
//  2. [ExtractName] inspects the first line only and falls back to the
//     customer handle when no two-token name is present.
//  3. [ExtractCityStateZip] scans the lines (last to first by default) for a
//     "city, state ZIP" span and removes it.
//  4. [ClassifyStreetLines] assigns the street line and the unit line from
//     whatever is left.
//
// # Concurrency
//
// An [Extractor] holds only immutable options and the package shares only
// compiled patterns and the read-only state table, so a single value may be
// used from any number of goroutines.
package address
