// Command reelkeeper scans a download directory, groups and identifies the
// media it finds against TMDB, and moves it into a Plex/Jellyfin style library.
// Every run is journaled so it can be rolled back.
//
//	reelkeeper scan ~/Downloads
//	reelkeeper organize ~/Downloads --dry-run
//	reelkeeper logs
//	reelkeeper rollback 20260301T120000.000000000Z
package main
