// Package scan drives the triage pipeline over a set of files.
//
// [Scanner.Run] lists files with gitctx, then analyzes them in parallel
// with a bounded errgroup. Per file it drops oversized and binary content,
// skips minified bundles as non_code, consults the analysis cache for
// unchanged clean files, analyzes (optionally TODO-aware), renders the
// routed prompt and, when enabled, chunks the file into a shared dedup
// index. A sequential pass in file order then marks repeated content as
// duplicate_content and aggregates the batch report and routing stats,
// so the report does not depend on scheduling.
package scan
