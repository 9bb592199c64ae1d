package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reelkeeper/internal/cache"
	"reelkeeper/internal/config"
	"reelkeeper/internal/grouping"
	"reelkeeper/internal/identification"
	"reelkeeper/internal/identification/tmdb"
	"reelkeeper/internal/journal"
	"reelkeeper/internal/logging"
	"reelkeeper/internal/media"
	"reelkeeper/internal/organizer"
	"reelkeeper/internal/pipeline"
	"reelkeeper/internal/ratelimit"
	"reelkeeper/internal/services"
)

// Matcher identifies one group.
type Matcher interface {
	Match(ctx context.Context, group *media.Group) (identification.Outcome, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithMatcher replaces the TMDB-backed matching engine.
func WithMatcher(m Matcher) Option {
	return func(s *Service) { s.matcher = m }
}

// WithProvider keeps the matching engine but swaps its catalog provider.
func WithProvider(p identification.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// Service exposes the organizer workflow operations.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger

	pipeline *pipeline.Pipeline
	grouper  *grouping.Engine
	planner  *organizer.Planner

	mu       sync.Mutex
	provider identification.Provider
	matcher  Matcher
	store    cache.Store
	journal  *journal.Journal
}

// New validates cfg and builds the collaborators that need no credentials.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "api", "new service", "configuration is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	grouper, err := grouping.NewFromConfig(cfg.Grouping, logger)
	if err != nil {
		return nil, err
	}
	planner, err := organizer.NewPlannerFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "api"),
		pipeline: pipeline.New(pipeline.OptionsFromConfig(cfg.Scan, logger)),
		grouper:  grouper,
		planner:  planner,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the cache store.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// Scan walks root and parses every admitted file.
func (s *Service) Scan(ctx context.Context, root string, filters pipeline.Filters) ([]*media.ScannedFile, pipeline.Stats, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, pipeline.Stats{}, services.Wrap(services.ErrValidation, "api", "scan", "root directory is required", nil)
	}
	result, err := s.pipeline.Run(ctx, root, filters)
	if err != nil {
		return result.Files, result.Stats, err
	}
	s.logger.Info("scan finished",
		logging.String("root", root),
		logging.Int("files", len(result.Files)),
		logging.Duration("duration", result.Duration),
	)
	return result.Files, result.Stats, nil
}

// DefaultFilters returns the configured scan filters.
func (s *Service) DefaultFilters() pipeline.Filters {
	return pipeline.FiltersFromConfig(s.cfg.Scan)
}

// Group clusters scanned files.
func (s *Service) Group(files []*media.ScannedFile) ([]*media.Group, error) {
	return s.grouper.Group(files)
}

// MatchResponse is the outcome of matching one group.
type MatchResponse struct {
	Candidates           []media.MatchResult
	Selected             *media.MatchResult
	NeedsManualSelection bool
}

// Match identifies group against the catalog.
func (s *Service) Match(ctx context.Context, group *media.Group) (MatchResponse, error) {
	matcher, err := s.matchEngine()
	if err != nil {
		return MatchResponse{}, err
	}
	outcome, err := matcher.Match(ctx, group)
	if err != nil {
		return MatchResponse{}, err
	}
	return MatchResponse{
		Candidates:           outcome.Candidates,
		Selected:             outcome.Selected,
		NeedsManualSelection: outcome.NeedsManualSelection,
	}, nil
}

// MatchAll matches groups concurrently, bounded by the provider concurrency.
// A group whose title fails validation is left unmatched.
func (s *Service) MatchAll(ctx context.Context, groups []*media.Group) ([]MatchResponse, error) {
	matcher, err := s.matchEngine()
	if err != nil {
		return nil, err
	}
	out := make([]MatchResponse, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.cfg.TMDB.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, group := range groups {
		g.Go(func() error {
			outcome, err := matcher.Match(gctx, group)
			if err != nil {
				if errors.Is(err, services.ErrValidation) {
					logging.WarnWithContext(s.logger, "group not matchable", "match_skipped",
						logging.String("group", group.Title),
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "the group title is empty after cleanup"),
						logging.String(logging.FieldImpact, "group left unmatched"),
					)
					return nil
				}
				return err
			}
			out[i] = MatchResponse{
				Candidates:           outcome.Candidates,
				Selected:             outcome.Selected,
				NeedsManualSelection: outcome.NeedsManualSelection,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// Plan computes file operations for matched groups.
func (s *Service) Plan(groups []*media.Group) []organizer.FileOperation {
	return s.planner.Plan(groups)
}

// Execute applies plan and journals committed operations.
func (s *Service) Execute(ctx context.Context, plan []organizer.FileOperation) (organizer.Result, error) {
	executor, err := s.executor()
	if err != nil {
		return organizer.Result{}, err
	}
	return executor.Execute(ctx, plan)
}

// Rollback plans the inverse of a journaled run. Apply it with Execute.
func (s *Service) Rollback(ctx context.Context, logID string) ([]organizer.FileOperation, error) {
	j, err := s.openJournal()
	if err != nil {
		return nil, err
	}
	return organizer.NewRollbackManager(j, s.logger).Plan(ctx, logID)
}

// Logs summarizes journals newest first.
func (s *Service) Logs() ([]journal.Summary, error) {
	j, err := s.openJournal()
	if err != nil {
		return nil, err
	}
	return j.Summaries()
}

// Log loads one journal.
func (s *Service) Log(logID string) (journal.Log, error) {
	j, err := s.openJournal()
	if err != nil {
		return journal.Log{}, err
	}
	return j.GetLogByID(logID)
}

// OrganizeReport is the outcome of a full scan-to-execute run.
type OrganizeReport struct {
	Files    []*media.ScannedFile
	Stats    pipeline.Stats
	Groups   []*media.Group
	Matches  []MatchResponse
	Plan     []organizer.FileOperation
	Result   *organizer.Result
	Duration time.Duration
}

// Organize scans root, groups, matches, plans, and unless dryRun executes.
func (s *Service) Organize(ctx context.Context, root string, filters pipeline.Filters, dryRun bool) (OrganizeReport, error) {
	start := time.Now()
	var report OrganizeReport
	files, stats, err := s.Scan(ctx, root, filters)
	report.Files, report.Stats = files, stats
	if err != nil {
		return report, err
	}
	if report.Groups, err = s.Group(files); err != nil {
		return report, err
	}
	if report.Matches, err = s.MatchAll(ctx, report.Groups); err != nil {
		return report, err
	}
	report.Plan = s.Plan(report.Groups)
	if !dryRun {
		result, err := s.Execute(ctx, report.Plan)
		report.Result = &result
		if err != nil {
			return report, err
		}
	}
	report.Duration = time.Since(start)
	return report, nil
}

func (s *Service) matchEngine() (Matcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matcher != nil {
		return s.matcher, nil
	}
	if s.provider == nil {
		if strings.TrimSpace(s.cfg.TMDB.APIKey) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "api", "match",
				"TMDB API key not configured; set tmdb.api_key or TMDB_API_KEY", nil)
		}
		client, err := tmdb.New(s.cfg.TMDB.APIKey, s.cfg.TMDB.BaseURL, s.cfg.TMDB.Language,
			tmdb.WithTimeout(time.Duration(s.cfg.TMDB.RequestTimeout)*time.Second))
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "api", "match", "tmdb client", err)
		}
		s.provider = client
	}
	if s.store == nil {
		store, err := cache.Open(s.cfg, s.logger)
		if err != nil {
			logging.WarnWithContext(s.logger, "cache unavailable; using memory", "cache_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check cache_dir permissions and cache.backend"),
				logging.String(logging.FieldImpact, "provider responses are not persisted across runs"),
			)
			store = cache.NewSafe(cache.NewMemory(cache.PolicyFromConfig(s.cfg.Cache)), s.logger)
		}
		s.store = store
	}
	engine, err := identification.NewEngine(s.provider, identification.Options{
		Matching: s.cfg.Matching,
		Cache:    s.store,
		Limiter:  ratelimit.NewLimiter(s.cfg.TMDB.MaxConcurrent),
		State:    ratelimit.NewStateMachine(ratelimit.SettingsFromConfig(s.cfg.RateLimit)),
		Logger:   s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.matcher = engine
	return engine, nil
}

func (s *Service) openJournal() (*journal.Journal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		return s.journal, nil
	}
	j, err := journal.New(s.cfg.Paths.JournalDir, s.logger)
	if err != nil {
		return nil, err
	}
	s.journal = j
	return j, nil
}

func (s *Service) executor() (*organizer.Executor, error) {
	j, err := s.openJournal()
	if err != nil {
		return nil, err
	}
	return organizer.NewExecutor(j, s.logger)
}
