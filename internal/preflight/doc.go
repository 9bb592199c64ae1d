// Package preflight provides readiness checks for the filesystem paths and
// TMDB access that reelkeeper depends on.
//
// The CLI "config validate" command runs RunAll, and CheckTMDB when --online
// is set, and prints each result.
package preflight
