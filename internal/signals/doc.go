// Package signals extracts a fixed-shape bundle of quality signals from raw
// file text.
//
// [Extractor.Extract] is pure and never fails: empty or binary-looking
// input yields a zero [QualitySignals]. Each sub-check (line metrics, error
// handling, unsafe regions, secrets and SQL, complexity, markers, structure)
// is its own method so it can be exercised in isolation. All expressions
// come from a [patterns.Table]; nothing here compiles a regexp.
package signals
