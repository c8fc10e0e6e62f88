// Package todo finds TODO-style markers in source comments and summarizes
// them per file with an inferred priority.
//
// The analyzer consumes a [Source] by path and never scans directories
// itself; [FileSource] reads from disk and [MapSource] serves in-memory
// content for tests and stdin.
package todo
