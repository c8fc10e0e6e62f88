// Package patterns holds every regular expression sieve uses to detect
// quality signals, as one enumerable table.
//
// Each [Pattern] carries a name, a category, a severity, a confidence and
// the languages it applies to. Consumers ask a [Table] for the patterns of
// one category in one language and never compile expressions of their own,
// so the test suite can walk the whole table.
//
// The same table drives secret redaction ([Redact]) for prompt bodies and
// the path policy used to withhold whole files ([ShouldRedactPath]).
package patterns
