// Package cli wires together the Cobra command tree for the sieve binary.
//
// It defines the root command and all subcommands (scan, analyze, route,
// chunk, dedup, config, cache, hook, version), binds flags, reads
// configuration, runs the triage pipeline and returns deterministic exit
// codes for CI gating: 0 success, 1 when a --fail-on threshold is met,
// 2 for usage errors and 4 for runtime failures.
package cli
