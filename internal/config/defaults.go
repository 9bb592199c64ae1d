package config

const (
	defaultLibraryDir               = "~/library"
	defaultJournalDir               = "~/.local/share/reelkeeper/journal"
	defaultLogDir                   = "~/.local/share/reelkeeper/logs"
	defaultCacheDir                 = "~/.cache/reelkeeper"
	defaultTMDBLanguage             = "en-US"
	defaultTMDBBaseURL              = "https://api.themoviedb.org/3"
	defaultTMDBRequestTimeout       = 10
	defaultTMDBMaxConcurrent        = 4
	defaultScanMinSizeBytes         = 0
	defaultScanWorkers              = 4
	defaultScanQueueCapacity        = 1000
	defaultTitleSimilarityThreshold = 0.7
	defaultMaxTitleLength           = 256
	defaultAnimationThreshold       = 0.2
	defaultMatchThreshold           = 0.8
	defaultTieMargin                = 0.05
	defaultYearWindow               = 10
	defaultAnimationGenreID         = 16
	defaultGenreBoost               = 0.5
	defaultPartialMatchRatio        = 60
	defaultBackoffSeconds           = 2
	defaultErrorWindow              = 20
	defaultErrorThreshold           = 0.5
	defaultCacheOnlySeconds         = 60
	defaultCacheBackend             = "sqlite"
	defaultSearchTTLHours           = 24
	defaultDetailsTTLHours          = 24 * 7
	defaultTVDir                    = "tv"
	defaultMoviesDir                = "movies"
	defaultTVFolderTemplate         = "{title}/Season {season:02}"
	defaultTVFileTemplate           = "{title} - S{season:02}E{episode:02}{ext}"
	defaultMovieFolderTemplate      = "{title} ({year})"
	defaultMovieFileTemplate        = "{title} ({year}){ext}"
	defaultOperation                = "move"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Matcher names used as keys of Grouping.Weights.
const (
	MatcherHashSimilarity  = "hash_similarity"
	MatcherTitleSimilarity = "title_similarity"
	MatcherSeasonEpisode   = "season_episode"
)

var (
	defaultExtensions = []string{
		".mkv", ".mp4", ".avi", ".m4v", ".mov", ".wmv", ".ts", ".webm",
		".srt", ".ass", ".ssa", ".sub",
	}
	defaultExcludeDirs = []string{
		".*", "@eaDir", "$RECYCLE.BIN", "System Volume Information",
		"[Ss]ample", "[Ss]amples", "[Tt]railer", "[Tt]railers", "[Ee]xtras",
	}
	defaultExcludeFiles = []string{
		"*[Ss]ample*", "*-trailer.*", "*.part", "*.!qB",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			JournalDir: defaultJournalDir,
			LogDir:     defaultLogDir,
			CacheDir:   defaultCacheDir,
		},
		TMDB: TMDB{
			Language:       defaultTMDBLanguage,
			BaseURL:        defaultTMDBBaseURL,
			RequestTimeout: defaultTMDBRequestTimeout,
			MaxConcurrent:  defaultTMDBMaxConcurrent,
		},
		Scan: Scan{
			Extensions:    append([]string(nil), defaultExtensions...),
			Recursive:     true,
			ExcludeDirs:   append([]string(nil), defaultExcludeDirs...),
			ExcludeFiles:  append([]string(nil), defaultExcludeFiles...),
			MinSizeBytes:  defaultScanMinSizeBytes,
			Workers:       defaultScanWorkers,
			QueueCapacity: defaultScanQueueCapacity,
		},
		Grouping: Grouping{
			Weights:                  DefaultWeights(),
			TitleSimilarityThreshold: defaultTitleSimilarityThreshold,
			MaxTitleLength:           defaultMaxTitleLength,
		},
		Matching: Matching{
			AnimationThreshold: defaultAnimationThreshold,
			DefaultThreshold:   defaultMatchThreshold,
			TieMargin:          defaultTieMargin,
			YearWindow:         defaultYearWindow,
			AnimationGenreID:   defaultAnimationGenreID,
			GenreBoost:         defaultGenreBoost,
			PartialMatchRatio:  defaultPartialMatchRatio,
		},
		RateLimit: RateLimit{
			DefaultBackoffSeconds: defaultBackoffSeconds,
			ErrorWindow:           defaultErrorWindow,
			ErrorThreshold:        defaultErrorThreshold,
			CacheOnlySeconds:      defaultCacheOnlySeconds,
		},
		Cache: Cache{
			Backend:         defaultCacheBackend,
			SearchTTLHours:  defaultSearchTTLHours,
			DetailsTTLHours: defaultDetailsTTLHours,
		},
		Library: Library{
			TVDir:               defaultTVDir,
			MoviesDir:           defaultMoviesDir,
			TVFolderTemplate:    defaultTVFolderTemplate,
			TVFileTemplate:      defaultTVFileTemplate,
			MovieFolderTemplate: defaultMovieFolderTemplate,
			MovieFileTemplate:   defaultMovieFileTemplate,
			Operation:           defaultOperation,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultWeights returns the stock matcher weight map.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		MatcherHashSimilarity:  0.5,
		MatcherTitleSimilarity: 0.3,
		MatcherSeasonEpisode:   0.2,
	}
}
