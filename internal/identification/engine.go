package identification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"reelkeeper/internal/cache"
	"reelkeeper/internal/config"
	"reelkeeper/internal/identification/tmdb"
	"reelkeeper/internal/logging"
	"reelkeeper/internal/media"
	"reelkeeper/internal/ratelimit"
	"reelkeeper/internal/services"
)

// Provider returns unscored catalog candidates for a query. An empty
// mediaType searches every catalog the provider knows.
type Provider interface {
	SearchComprehensive(ctx context.Context, query media.NormalizedQuery, mediaType media.MediaType) ([]media.MatchResult, bool, error)
}

// Options wires the engine's collaborators. Nil fields get safe defaults.
type Options struct {
	Matching config.Matching
	Cache    cache.Store
	Limiter  *ratelimit.Limiter
	State    *ratelimit.StateMachine
	Scorer   *Scorer
	Fallback *FallbackChain
	Logger   *slog.Logger
}

// Outcome is the result of identifying one query.
type Outcome struct {
	Query                media.NormalizedQuery `json:"-"`
	MediaType            media.MediaType       `json:"media_type,omitempty"`
	Candidates           []media.MatchResult   `json:"candidates"`
	Selected             *media.MatchResult    `json:"selected,omitempty"`
	NeedsManualSelection bool                  `json:"needs_manual_selection"`
	FallbackApplied      bool                  `json:"fallback_applied"`
	Strategy             string                `json:"strategy,omitempty"`
}

// Search strategies recorded on the outcome.
const (
	StrategyExact      = "exact"
	StrategyYearWindow = "year_window"
	StrategyCoreTitle  = "core_title"
	StrategyCache      = "cache"
)

// Engine matches queries against a Provider.
type Engine struct {
	provider Provider
	opts     Options
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewEngine validates the matching policy and fills defaults.
func NewEngine(provider Provider, opts Options) (*Engine, error) {
	if provider == nil {
		return nil, services.Wrap(services.ErrConfiguration, "identification", "new engine", "provider is required", nil)
	}
	m := opts.Matching
	if m.DefaultThreshold < 0 || m.DefaultThreshold > 1 || m.AnimationThreshold < 0 || m.AnimationThreshold > 1 {
		return nil, services.Wrap(services.ErrValidation, "identification", "new engine", "thresholds must be within [0, 1]", nil)
	}
	if m.TieMargin < 0 {
		return nil, services.Wrap(services.ErrValidation, "identification", "new engine", "tie margin must be non-negative", nil)
	}
	if m.YearWindow < 1 {
		opts.Matching.YearWindow = 10
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory(cache.TTLPolicy{})
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(1)
	}
	if opts.State == nil {
		opts.State = ratelimit.NewStateMachine(ratelimit.SettingsFromConfig(config.Default().RateLimit))
	}
	if opts.Scorer == nil {
		opts.Scorer = DefaultScorer(opts.Matching.YearWindow)
	}
	logger := logging.NewComponentLogger(opts.Logger, "identification")
	if opts.Fallback == nil {
		opts.Fallback = DefaultFallbacks(opts.Matching, logger)
	}
	return &Engine{provider: provider, opts: opts, logger: logger, sleep: sleepContext}, nil
}

// DefaultFallbacks builds the genre boost and partial match chain from m.
func DefaultFallbacks(m config.Matching, logger *slog.Logger) *FallbackChain {
	return NewFallbackChain(logger,
		GenreBoost{GenreID: m.AnimationGenreID, Boost: m.GenreBoost},
		PartialMatch{MinRatio: m.PartialMatchRatio, Boost: m.GenreBoost},
	)
}

// Match identifies group and records the selection on the group and each
// of its files. The media type is tv when any file carries a season or
// episode number.
func (e *Engine) Match(ctx context.Context, group *media.Group) (Outcome, error) {
	if group == nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "identification", "match", "group is nil", nil)
	}
	outcome, err := e.Identify(ctx, group.Title, group.Year(), inferMediaType(group))
	if err != nil {
		return outcome, err
	}
	group.Match = outcome.Selected
	status := media.StatusUnmatched
	if outcome.Selected != nil {
		status = media.StatusMatched
	}
	for _, f := range group.Files {
		f.Status = status
		if outcome.Selected != nil {
			sel := *outcome.Selected
			f.Match = &sel
		} else {
			f.Match = nil
		}
	}
	return outcome, nil
}

func inferMediaType(group *media.Group) media.MediaType {
	if group.Season > 0 {
		return media.MediaTypeTV
	}
	for _, f := range group.Files {
		if f.Metadata.Season > 0 || f.Metadata.Episode > 0 {
			return media.MediaTypeTV
		}
	}
	return media.MediaTypeMovie
}

// Identify builds a query from rawTitle and year, searches with retries, and
// applies the selection policy. Only query validation and context errors are
// returned.
func (e *Engine) Identify(ctx context.Context, rawTitle string, year int, mediaType media.MediaType) (Outcome, error) {
	query, err := BuildQuery(rawTitle, year)
	if err != nil {
		return Outcome{}, err
	}
	outcome := Outcome{Query: query, MediaType: mediaType}

	candidates, strategy, err := e.searchWithRetries(ctx, query, mediaType)
	if err != nil {
		return outcome, err
	}
	outcome.Strategy = strategy
	candidates = e.withinYearWindow(query, candidates)
	if len(candidates) == 0 {
		attrs := append(logging.DecisionAttrs("match", "unmatched", "no candidates"),
			logging.String("query", query.String()))
		e.logger.Info("match decision", logging.Args(attrs...)...)
		return outcome, nil
	}

	ranked := e.opts.Scorer.Rank(query, mediaType, candidates)
	if !e.decisive(ranked) {
		ranked = e.opts.Fallback.Apply(query, ranked)
		outcome.FallbackApplied = true
	}
	outcome.Candidates = ranked
	if len(ranked) > 0 && e.decisive(ranked) {
		top := ranked[0]
		outcome.Selected = &top
	} else {
		outcome.NeedsManualSelection = len(ranked) > 0
	}

	result, reason := "manual", "no decisive candidate"
	if outcome.Selected != nil {
		result, reason = "selected", "top candidate cleared threshold"
	}
	attrs := append(logging.DecisionAttrs("match", result, reason),
		logging.String("query", query.String()),
		logging.Int("candidates", len(ranked)),
		logging.Bool("fallback", outcome.FallbackApplied),
	)
	if outcome.Selected != nil {
		attrs = append(attrs,
			logging.Int64("tmdb_id", outcome.Selected.ID),
			logging.String("title", outcome.Selected.Title),
			logging.Float64("confidence", outcome.Selected.Confidence),
		)
	}
	e.logger.Info("match decision", logging.Args(attrs...)...)
	return outcome, nil
}

// decisive reports whether the top candidate clears its threshold with no
// near-tie behind it.
func (e *Engine) decisive(ranked []media.MatchResult) bool {
	if len(ranked) == 0 {
		return false
	}
	top := ranked[0]
	threshold := e.opts.Matching.DefaultThreshold
	if top.HasGenre(e.opts.Matching.AnimationGenreID) {
		threshold = e.opts.Matching.AnimationThreshold
	}
	if top.Confidence <= threshold {
		return false
	}
	if len(ranked) > 1 && top.Confidence-ranked[1].Confidence < e.opts.Matching.TieMargin {
		return false
	}
	return true
}

func (e *Engine) searchWithRetries(ctx context.Context, query media.NormalizedQuery, mediaType media.MediaType) ([]media.MatchResult, string, error) {
	candidates, cached, err := e.search(ctx, query, mediaType)
	if err != nil || len(candidates) > 0 {
		return candidates, strategyName(StrategyExact, cached), err
	}

	if query.HasYear() {
		open, qerr := media.NewNormalizedQuery(query.Title(), 0)
		if qerr == nil {
			candidates, cached, err = e.search(ctx, open, mediaType)
			if err != nil {
				return nil, "", err
			}
			candidates = e.withinYearWindow(query, candidates)
			if len(candidates) > 0 {
				return candidates, strategyName(StrategyYearWindow, cached), nil
			}
		}
	}

	core := coreTitle(query.Title())
	if core == "" {
		return nil, "", nil
	}
	reduced, qerr := media.NewNormalizedQuery(core, 0)
	if qerr != nil {
		return nil, "", nil
	}
	candidates, cached, err = e.search(ctx, reduced, mediaType)
	if err != nil {
		return nil, "", err
	}
	candidates = e.withinYearWindow(query, candidates)
	var animated []media.MatchResult
	for _, c := range candidates {
		if c.HasGenre(e.opts.Matching.AnimationGenreID) {
			animated = append(animated, c)
		}
	}
	if len(animated) > 0 {
		candidates = animated
	}
	return candidates, strategyName(StrategyCoreTitle, cached), nil
}

func strategyName(base string, cached bool) string {
	if cached {
		return base + "+" + StrategyCache
	}
	return base
}

// withinYearWindow drops candidates whose known year lies outside the window
// around a known query year.
func (e *Engine) withinYearWindow(query media.NormalizedQuery, candidates []media.MatchResult) []media.MatchResult {
	if !query.HasYear() {
		return candidates
	}
	window := e.opts.Matching.YearWindow
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.Year != 0 {
			diff := c.Year - query.Year()
			if diff < -window || diff > window {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// search consults the cache, then the provider under the rate gate. Provider
// failures yield zero candidates.
func (e *Engine) search(ctx context.Context, query media.NormalizedQuery, mediaType media.MediaType) ([]media.MatchResult, bool, error) {
	key := SearchCacheKey(query, mediaType)
	if candidates, ok := e.cached(ctx, key); ok {
		return candidates, true, nil
	}

	state := e.opts.State
	switch state.State() {
	case ratelimit.StateCacheOnly:
		e.logger.Debug("cache only; skipping provider", logging.String("query", query.String()))
		return nil, false, nil
	case ratelimit.StateThrottle:
		if err := e.sleep(ctx, state.RetryDelay()); err != nil {
			return nil, false, err
		}
		if !state.ShouldMakeRequest() {
			return nil, false, nil
		}
	}

	if err := e.opts.Limiter.Acquire(ctx); err != nil {
		return nil, false, err
	}
	candidates, _, err := e.provider.SearchComprehensive(ctx, query, mediaType)
	e.opts.Limiter.Release()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		var rl *tmdb.RateLimitError
		if errors.As(err, &rl) {
			state.RecordRateLimited(rl.RetryAfter)
		} else {
			state.RecordError()
		}
		logging.WarnWithContext(e.logger, "provider search failed", "provider_error",
			logging.String("query", query.String()),
			logging.Error(err),
			logging.String("rate_state", state.State().String()),
			logging.String(logging.FieldErrorHint, "check TMDB credentials and network reachability"),
			logging.String(logging.FieldImpact, "query treated as having no candidates"),
		)
		return nil, false, nil
	}
	state.RecordSuccess()
	e.store(ctx, key, candidates)
	return candidates, false, nil
}

// SearchCacheKey renders the search cache key for query and mediaType.
func SearchCacheKey(query media.NormalizedQuery, mediaType media.MediaType) string {
	mode := string(mediaType)
	if mode == "" {
		mode = "all"
	}
	year := ""
	if query.HasYear() {
		year = strconv.Itoa(query.Year())
	}
	return fmt.Sprintf("search|%s|%s|%s", mode, strings.ToLower(query.Title()), year)
}

func (e *Engine) cached(ctx context.Context, key string) ([]media.MatchResult, bool) {
	raw, ok, err := e.opts.Cache.Get(ctx, key, cache.TypeSearch)
	if err != nil {
		e.logger.Debug("cache read failed", logging.String("key", key), logging.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var candidates []media.MatchResult
	if err := json.Unmarshal(raw, &candidates); err != nil {
		e.logger.Debug("cache entry undecodable", logging.String("key", key), logging.Error(err))
		return nil, false
	}
	return candidates, true
}

func (e *Engine) store(ctx context.Context, key string, candidates []media.MatchResult) {
	if candidates == nil {
		candidates = []media.MatchResult{}
	}
	raw, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	if err := e.opts.Cache.Set(ctx, key, cache.TypeSearch, raw); err != nil {
		e.logger.Debug("cache write failed", logging.String("key", key), logging.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
