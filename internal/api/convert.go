package api

import (
	"reelkeeper/internal/journal"
	"reelkeeper/internal/media"
	"reelkeeper/internal/organizer"
	"reelkeeper/internal/pipeline"
)

// FromScannedFile converts a scanned file.
func FromScannedFile(f *media.ScannedFile) FileView {
	if f == nil {
		return FileView{}
	}
	view := FileView{
		Path:       f.Path,
		Size:       f.Size,
		Title:      f.Metadata.Title,
		Year:       f.Metadata.Year,
		Season:     f.Metadata.Season,
		Episode:    f.Metadata.Episode,
		EpisodeEnd: f.Metadata.EpisodeEnd,
		Quality:    f.Metadata.Quality,
		Parser:     f.Metadata.Parser,
		Confidence: f.Metadata.Confidence,
		Status:     string(f.Status),
		Error:      f.Err,
		Tags:       append([]string(nil), f.Tags...),
		Match:      FromMatchResult(f.Match),
	}
	return view
}

// FromScannedFiles converts files in order.
func FromScannedFiles(files []*media.ScannedFile) []FileView {
	out := make([]FileView, 0, len(files))
	for _, f := range files {
		out = append(out, FromScannedFile(f))
	}
	return out
}

// FromMatchResult converts a candidate; nil stays nil.
func FromMatchResult(m *media.MatchResult) *MatchView {
	if m == nil {
		return nil
	}
	return &MatchView{
		ID:         m.ID,
		Title:      m.Title,
		Year:       m.Year,
		MediaType:  string(m.MediaType),
		Confidence: m.Confidence,
		Popularity: m.Popularity,
	}
}

// FromGroup converts a group and, when given, its match response.
func FromGroup(g *media.Group, match *MatchResponse) GroupView {
	view := GroupView{
		Title:         g.Title,
		Season:        g.Season,
		Confidence:    g.Confidence(),
		HasDuplicates: g.HasDuplicates(),
		Files:         FromScannedFiles(g.Files),
		Match:         FromMatchResult(g.Match),
	}
	if g.Evidence != nil {
		view.Matcher = g.Evidence.SelectedMatcher
		view.MatcherScores = g.Evidence.MatcherScores
		view.Explanation = g.Evidence.Explanation
	}
	if match != nil {
		for i := range match.Candidates {
			view.Candidates = append(view.Candidates, *FromMatchResult(&match.Candidates[i]))
		}
		view.NeedsManualSelection = match.NeedsManualSelection
	}
	return view
}

// FromGroups converts groups, pairing matches by index when present.
func FromGroups(groups []*media.Group, matches []MatchResponse) []GroupView {
	out := make([]GroupView, 0, len(groups))
	for i, g := range groups {
		var match *MatchResponse
		if i < len(matches) {
			match = &matches[i]
		}
		out = append(out, FromGroup(g, match))
	}
	return out
}

// FromOperation converts a planned operation.
func FromOperation(op organizer.FileOperation) OperationView {
	return OperationView{
		ID:          op.ID,
		Type:        string(op.Type),
		Source:      op.Source,
		Destination: op.Destination,
		Size:        op.Size,
		Group:       op.GroupTitle,
		Warning:     op.Warning,
	}
}

// FromPlan converts a plan in order.
func FromPlan(plan []organizer.FileOperation) []OperationView {
	out := make([]OperationView, 0, len(plan))
	for _, op := range plan {
		out = append(out, FromOperation(op))
	}
	return out
}

// FromResult converts an execution result.
func FromResult(r organizer.Result) ExecutionView {
	view := ExecutionView{
		LogID:      r.LogID,
		Moved:      r.SuccessCount,
		Skipped:    r.SkippedCount,
		Failed:     r.FailedCount,
		Operations: make([]OperationView, 0, len(r.Details)),
	}
	for _, item := range r.Details {
		op := FromOperation(item.Operation)
		op.Status = string(item.Status)
		op.Reason = item.Reason
		op.BackupPath = item.BackupPath
		op.Error = item.Error
		view.Operations = append(view.Operations, op)
	}
	return view
}

// FromStats flattens pipeline statistics.
func FromStats(s pipeline.Stats) ScanStatsView {
	return ScanStatsView{
		DirsScanned:   s.Scan.DirsScanned,
		FilesSeen:     s.Scan.FilesSeen,
		FilesAdmitted: s.Scan.FilesAdmitted,
		ScanErrors:    s.Scan.Errors,
		Rejections:    s.Scan.Rejections,
		Parsed:        s.Parser.Parsed,
		FallbackUsed:  s.Parser.FallbackUsed,
		ParseErrors:   s.Parser.Errors,
		ByParser:      s.Parser.ByParser,
		PeakQueue:     s.InputQueue.PeakDepth,
		Collected:     s.Collected,
	}
}

// FromLogSummaries converts journal summaries.
func FromLogSummaries(summaries []journal.Summary) []LogSummaryView {
	out := make([]LogSummaryView, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, LogSummaryView{
			LogID:     s.ID,
			CreatedAt: s.CreatedAt.UTC().Format(dateTimeFormat),
			Entries:   s.Entries,
			SizeBytes: s.Size,
		})
	}
	return out
}

// FromLogEntries converts journal entries in write order.
func FromLogEntries(entries []journal.Entry) []LogEntryView {
	out := make([]LogEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogEntryView{
			OperationID: e.OperationID,
			Timestamp:   e.Timestamp.UTC().Format(dateTimeFormat),
			Action:      e.Action,
			Source:      e.Source,
			Destination: e.Destination,
			ContentHash: e.ContentHash,
			FileSize:    e.FileSize,
			BackupPath:  e.BackupPath,
		})
	}
	return out
}
