// Package grouping clusters scanned files into series and season groups.
//
// Each Matcher partitions the file list its own way. The Engine runs every
// matcher, discards the ones that fail, and uses the partition from the
// highest-weighted matcher that succeeded; the other matchers contribute only
// evidence. Groups whose titles differ only by a numbered suffix ("Title" and
// "Title (2)") are merged afterwards.
package grouping
