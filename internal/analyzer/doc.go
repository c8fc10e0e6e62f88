// Package analyzer turns quality signals into a review recommendation.
//
// An [Analyzer] classifies each file as Skip, Minimal, Standard or DeepDive
// using a fixed priority order: generated and non-code files are skipped,
// any red flag forces DeepDive, small clean files get Minimal, and the rest
// get Standard. Thresholds live in an immutable [Thresholds] value that is
// validated when the analyzer is built.
//
// [Analyzer.AnalyzeWithTodos] consults an external TODO source and may raise
// (never lower) the tier. [RedFlags] is exported so the prompt router can
// describe exactly the conditions that forced a DeepDive.
package analyzer
