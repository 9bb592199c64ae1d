// Package parser extracts title, season, episode, year, and quality hints from
// media filenames.
//
// Two implementations are provided. Structured tokenizes the basename and
// recognises the common release conventions (SxxEyy, NxNN, "Season N Episode
// M", anime "Title - 01", bracketed release groups). Regex is a short ordered
// list of fallback patterns with fixed confidences. Chain runs parsers in order
// and keeps the best valid result; a panicking parser is recovered and treated
// as having produced nothing.
package parser
