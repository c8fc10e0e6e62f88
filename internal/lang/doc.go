// Package lang identifies the source language of a file and describes the
// comment syntax the rest of sieve needs to tell code from commentary.
//
// Detection is extension-first with a go-enry fallback, so the result is a
// pure function of the path. The language set is closed: anything sieve has
// no rules for is [Unknown].
package lang
