// Sieve is a static triage CLI that runs before LLM code review.
//
// It scores every file with cheap static signals, decides whether the file
// needs no review, a minimal pass, a standard review or a deep dive, renders
// the matching prompt and deduplicates code chunks across repositories.
//
// Usage:
//
//	sieve scan                              # triage every tracked file
//	sieve scan --staged --fail-on deep_dive # gate a commit
//	sieve scan --range origin/main..HEAD    # triage a branch
//	sieve analyze src/lib.rs                # static analysis of one file
//	sieve route src/lib.rs --show-prompt    # the prompt sieve would send
//	sieve chunk src/lib.rs                  # semantic chunks of one file
//	sieve dedup core=../core api=../api     # duplicated code across repos
//
// See https://github.com/dshills/sieve for full documentation.
package main
