// Package core converts shipping-remark CSV files into USPS label tables.
//
// It holds the domain flow independent of any transport, so the web server,
// the CLI and tests drive it the same way.
//
// # Conversion
//
// [Service.Convert] runs one batch:
//
//  1. Take a slot from the [BatchLimiter]
//  2. Wrap the reader with [WrapForStreaming] (BOM skip, UTF-8 sanitize, byte count)
//  3. Find the header within [MaxHeaderSearchRows] records and resolve the
//     remark and handle columns; a missing column fails the batch with
//     [ErrMissingColumn] before any row is processed
//  4. Extract every remark on a bounded errgroup, keeping row order
//  5. Merge with the label profile and cache the result for download
//  6. Record the batch in the [HistoryStore], when one is configured
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError].
// Codes are grouped as VAL (input validation), FILE (upload), BAT (batch
// lifecycle), DB (history store) and RATE (throttling).
package core
