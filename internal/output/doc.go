// Package output formats scan reports for display or machine consumption.
//
// Four formats are supported:
//   - text: human-readable terminal output (default)
//   - json: the full structured report
//   - markdown: PR-comment-friendly with one collapsible section per tier
//   - sarif: SARIF v2.1.0, one result per triggered issue category
//
// Use [GetWriter] to obtain a [Writer] for a format string, then call
// [Writer.Write] with an [io.Writer] and a [*scan.Report]. [WriteReport]
// handles destination selection.
package output
