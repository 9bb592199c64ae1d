// Package textutil provides text processing utilities for title normalization,
// similarity scoring, and filename sanitization.
//
// The primary use cases are:
//   - Folding release titles into comparable keys (case, punctuation, diacritics)
//   - Token-set Jaccard similarity for clustering related files
//   - Edit-distance ratios for fuzzy catalog matching
//   - Sanitizing filenames and path segments for safe filesystem use
//
// Ratios follow the 0-100 convention used by fuzzy matching libraries; a
// substitution costs two edits so the ratio matches the classic
// (len(a)+len(b)-distance)/(len(a)+len(b)) formulation.
package textutil
