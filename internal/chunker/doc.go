// Package chunker splits source files into semantic units for embedding
// and cross-repository deduplication.
//
// Boundaries are found line by line from per-language declaration tables
// while tracking brace or indentation depth; no syntax tree is built. A
// chunk starts at any doc comment or attribute block directly above its
// declaration and ends where nesting returns to the declaration's level.
// Files in languages without a table fall back to blank-line paragraphs.
//
// Each chunk's ContentHash covers the normalized body only, never the
// attached doc text, so the same function under different comments in
// different repositories hashes identically.
package chunker
