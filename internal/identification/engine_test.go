package identification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reelkeeper/internal/cache"
	"reelkeeper/internal/config"
	"reelkeeper/internal/identification/tmdb"
	"reelkeeper/internal/media"
	"reelkeeper/internal/ratelimit"
	"reelkeeper/internal/services"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   []media.NormalizedQuery
	respond func(call int, query media.NormalizedQuery) ([]media.MatchResult, error)
}

func (p *fakeProvider) SearchComprehensive(_ context.Context, query media.NormalizedQuery, _ media.MediaType) ([]media.MatchResult, bool, error) {
	p.mu.Lock()
	p.calls = append(p.calls, query)
	call := len(p.calls)
	p.mu.Unlock()
	results, err := p.respond(call, query)
	return results, len(results) > 1, err
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func staticProvider(results ...media.MatchResult) *fakeProvider {
	return &fakeProvider{respond: func(int, media.NormalizedQuery) ([]media.MatchResult, error) {
		return results, nil
	}}
}

// fixedScorer scores candidates by id.
func fixedScorer(t *testing.T, scores map[int64]float64) *Scorer {
	t.Helper()
	scorer, err := NewScorer([]Factor{{
		Name:   "fixed",
		Weight: 1,
		Score: func(_ media.NormalizedQuery, _ media.MediaType, c media.MatchResult) (float64, error) {
			return scores[c.ID], nil
		},
	}})
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return scorer
}

func newTestEngine(t *testing.T, provider Provider, opts Options) *Engine {
	t.Helper()
	if opts.Matching == (config.Matching{}) {
		opts.Matching = config.Default().Matching
	}
	engine, err := NewEngine(provider, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func TestGenreBoostRanksAnimationFirst(t *testing.T) {
	x := media.MatchResult{ID: 1, Title: "Shingeki no Kyojin", Year: 2013, MediaType: media.MediaTypeTV, GenreIDs: []int{16, 10759}}
	y := media.MatchResult{ID: 2, Title: "Mad Men", Year: 2013, MediaType: media.MediaTypeTV, GenreIDs: []int{18}}
	engine := newTestEngine(t, staticProvider(x, y), Options{
		Scorer: fixedScorer(t, map[int64]float64{1: 0.6, 2: 0.7}),
	})

	outcome, err := engine.Identify(context.Background(), "Attack on Titan", 2013, media.MediaTypeTV)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if !outcome.FallbackApplied {
		t.Fatal("expected fallback chain to run")
	}
	if len(outcome.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(outcome.Candidates))
	}
	top := outcome.Candidates[0]
	if top.ID != 1 || top.Confidence != 1.0 {
		t.Fatalf("expected animation candidate boosted to 1.0 first, got id=%d conf=%v", top.ID, top.Confidence)
	}
	if outcome.Selected == nil || outcome.Selected.ID != 1 {
		t.Fatalf("expected animation candidate selected, got %+v", outcome.Selected)
	}
}

func TestSelectionPolicy(t *testing.T) {
	animated := func(id int64) media.MatchResult {
		return media.MatchResult{ID: id, Title: "Zeta", MediaType: media.MediaTypeMovie, GenreIDs: []int{16}}
	}
	plain := func(id int64) media.MatchResult {
		return media.MatchResult{ID: id, Title: "Zeta", MediaType: media.MediaTypeMovie}
	}
	tests := []struct {
		name       string
		candidates []media.MatchResult
		scores     map[int64]float64
		wantID     int64
		wantManual bool
	}{
		{name: "plain above threshold", candidates: []media.MatchResult{plain(1)}, scores: map[int64]float64{1: 0.9}, wantID: 1},
		{name: "plain below threshold", candidates: []media.MatchResult{plain(1)}, scores: map[int64]float64{1: 0.75}, wantManual: true},
		{name: "near tie", candidates: []media.MatchResult{plain(1), plain(2)}, scores: map[int64]float64{1: 0.92, 2: 0.9}, wantManual: true},
		{name: "animation low threshold", candidates: []media.MatchResult{animated(1)}, scores: map[int64]float64{1: 0.3}, wantID: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, staticProvider(tt.candidates...), Options{
				Scorer:   fixedScorer(t, tt.scores),
				Fallback: NewFallbackChain(nil),
			})
			outcome, err := engine.Identify(context.Background(), "Zeta", 0, media.MediaTypeMovie)
			if err != nil {
				t.Fatalf("Identify: %v", err)
			}
			if outcome.NeedsManualSelection != tt.wantManual {
				t.Fatalf("NeedsManualSelection = %v, want %v", outcome.NeedsManualSelection, tt.wantManual)
			}
			if tt.wantManual {
				if outcome.Selected != nil {
					t.Fatalf("expected no selection, got %+v", outcome.Selected)
				}
				return
			}
			if outcome.Selected == nil || outcome.Selected.ID != tt.wantID {
				t.Fatalf("expected selection %d, got %+v", tt.wantID, outcome.Selected)
			}
		})
	}
}

func TestSearchResultsAreCached(t *testing.T) {
	provider := staticProvider(media.MatchResult{ID: 7, Title: "Heat", Year: 1995, MediaType: media.MediaTypeMovie, Popularity: 40})
	store := cache.NewMemory(cache.TTLPolicy{})
	engine := newTestEngine(t, provider, Options{Cache: store})

	for i := 0; i < 2; i++ {
		outcome, err := engine.Identify(context.Background(), "Heat", 1995, media.MediaTypeMovie)
		if err != nil {
			t.Fatalf("Identify: %v", err)
		}
		if len(outcome.Candidates) != 1 {
			t.Fatalf("run %d: expected 1 candidate, got %d", i, len(outcome.Candidates))
		}
	}
	if provider.callCount() != 1 {
		t.Fatalf("expected one provider call, got %d", provider.callCount())
	}
	query, _ := media.NewNormalizedQuery("Heat", 1995)
	if _, ok, _ := store.Get(context.Background(), SearchCacheKey(query, media.MediaTypeMovie), cache.TypeSearch); !ok {
		t.Fatal("expected search entry in cache")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, cache.Type) ([]byte, bool, error) {
	return nil, false, errors.New("disk gone")
}

func (failingStore) Set(context.Context, string, cache.Type, []byte) error {
	return errors.New("disk gone")
}

func (failingStore) Delete(context.Context, string, cache.Type) error { return nil }

func (failingStore) Close() error { return nil }

func TestCacheFailureDoesNotChangeOutcome(t *testing.T) {
	candidate := media.MatchResult{ID: 7, Title: "Heat", Year: 1995, MediaType: media.MediaTypeMovie, Popularity: 40}
	healthy := newTestEngine(t, staticProvider(candidate), Options{})
	broken := newTestEngine(t, staticProvider(candidate), Options{Cache: failingStore{}})

	want, err := healthy.Identify(context.Background(), "Heat", 1995, media.MediaTypeMovie)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	got, err := broken.Identify(context.Background(), "Heat", 1995, media.MediaTypeMovie)
	if err != nil {
		t.Fatalf("Identify with failing cache: %v", err)
	}
	if len(got.Candidates) != len(want.Candidates) || got.Candidates[0].Confidence != want.Candidates[0].Confidence {
		t.Fatalf("outcomes differ: %+v vs %+v", got.Candidates, want.Candidates)
	}
}

func TestCacheOnlySkipsProvider(t *testing.T) {
	state := ratelimit.NewStateMachine(ratelimit.Settings{Window: 1, ErrorThreshold: 0.5, CacheOnlyPeriod: time.Hour})
	state.RecordError()
	if state.State() != ratelimit.StateCacheOnly {
		t.Fatalf("expected CACHE_ONLY, got %s", state.State())
	}
	provider := staticProvider(media.MatchResult{ID: 1, Title: "Heat", MediaType: media.MediaTypeMovie})
	engine := newTestEngine(t, provider, Options{State: state})

	outcome, err := engine.Identify(context.Background(), "Heat", 0, media.MediaTypeMovie)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if provider.callCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.callCount())
	}
	if len(outcome.Candidates) != 0 || outcome.NeedsManualSelection {
		t.Fatalf("expected empty outcome, got %+v", outcome)
	}
}

func TestProviderErrorYieldsNoCandidates(t *testing.T) {
	provider := &fakeProvider{respond: func(int, media.NormalizedQuery) ([]media.MatchResult, error) {
		return nil, errors.New("connection refused")
	}}
	engine := newTestEngine(t, provider, Options{})
	outcome, err := engine.Identify(context.Background(), "Heat", 1995, media.MediaTypeMovie)
	if err != nil {
		t.Fatalf("expected provider failure to be absorbed, got %v", err)
	}
	if len(outcome.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(outcome.Candidates))
	}
}

func TestRateLimitThrottlesNextCall(t *testing.T) {
	provider := &fakeProvider{respond: func(call int, _ media.NormalizedQuery) ([]media.MatchResult, error) {
		if call == 1 {
			return nil, &tmdb.RateLimitError{RetryAfter: 200 * time.Millisecond}
		}
		return []media.MatchResult{{ID: 3, Title: "Heat", Year: 1995, MediaType: media.MediaTypeMovie}}, nil
	}}
	engine := newTestEngine(t, provider, Options{})
	var slept []time.Duration
	engine.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		time.Sleep(d)
		return nil
	}

	outcome, err := engine.Identify(context.Background(), "Heat", 1995, media.MediaTypeMovie)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(slept) == 0 || slept[0] <= 0 {
		t.Fatalf("expected a throttle wait, got %v", slept)
	}
	if outcome.Strategy != StrategyYearWindow {
		t.Fatalf("expected year window retry to answer, got %q", outcome.Strategy)
	}
	if len(outcome.Candidates) != 1 {
		t.Fatalf("expected retry candidate, got %d", len(outcome.Candidates))
	}
}

func TestRetryWithoutYearFiltersWindow(t *testing.T) {
	provider := &fakeProvider{respond: func(_ int, q media.NormalizedQuery) ([]media.MatchResult, error) {
		if q.HasYear() {
			return nil, nil
		}
		return []media.MatchResult{
			{ID: 1, Title: "Show", Year: 2010, MediaType: media.MediaTypeMovie},
			{ID: 2, Title: "Show", Year: 1990, MediaType: media.MediaTypeMovie},
		}, nil
	}}
	engine := newTestEngine(t, provider, Options{})
	outcome, err := engine.Identify(context.Background(), "Show", 2013, media.MediaTypeMovie)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if outcome.Strategy != StrategyYearWindow {
		t.Fatalf("strategy = %q", outcome.Strategy)
	}
	if len(outcome.Candidates) != 1 || outcome.Candidates[0].ID != 1 {
		t.Fatalf("expected only the in-window candidate, got %+v", outcome.Candidates)
	}
}

func TestRetryWithCoreTitlePrefersAnimation(t *testing.T) {
	provider := &fakeProvider{respond: func(_ int, q media.NormalizedQuery) ([]media.MatchResult, error) {
		if q.Title() != "Dragon Quest" {
			return nil, nil
		}
		return []media.MatchResult{
			{ID: 1, Title: "Dragon Quest", MediaType: media.MediaTypeTV, GenreIDs: []int{16}},
			{ID: 2, Title: "Dragon Quest Live", MediaType: media.MediaTypeTV},
		}, nil
	}}
	engine := newTestEngine(t, provider, Options{})
	outcome, err := engine.Identify(context.Background(), "The Dragon Quest: The Adventure of Dai", 0, media.MediaTypeTV)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if outcome.Strategy != StrategyCoreTitle {
		t.Fatalf("strategy = %q", outcome.Strategy)
	}
	if len(outcome.Candidates) != 1 || outcome.Candidates[0].ID != 1 {
		t.Fatalf("expected only the animation candidate, got %+v", outcome.Candidates)
	}
}

func TestIdentifyRejectsEmptyTitle(t *testing.T) {
	engine := newTestEngine(t, staticProvider(), Options{})
	_, err := engine.Identify(context.Background(), "  [Group] 1080p ", 0, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMatchUpdatesGroupFiles(t *testing.T) {
	provider := staticProvider(media.MatchResult{ID: 9, Title: "Show", MediaType: media.MediaTypeTV, Popularity: 200})
	engine := newTestEngine(t, provider, Options{})
	group := &media.Group{
		Title: "Show",
		Files: []*media.ScannedFile{
			{Path: "/in/Show.S01E01.mkv", Metadata: media.Metadata{Title: "Show", Season: 1, Episode: 1}},
			{Path: "/in/Show.S01E02.mkv", Metadata: media.Metadata{Title: "Show", Season: 1, Episode: 2}},
		},
	}
	outcome, err := engine.Match(context.Background(), group)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if outcome.MediaType != media.MediaTypeTV {
		t.Fatalf("expected tv inference, got %q", outcome.MediaType)
	}
	if group.Match == nil || group.Match.ID != 9 {
		t.Fatalf("expected group match 9, got %+v", group.Match)
	}
	for _, f := range group.Files {
		if f.Status != media.StatusMatched || f.Match == nil || f.Match.ID != 9 {
			t.Fatalf("file %s not matched: status=%s match=%+v", f.Path, f.Status, f.Match)
		}
	}
}

func TestNewEngineRequiresProvider(t *testing.T) {
	if _, err := NewEngine(nil, Options{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
