package ratelimit

import (
	"sync"
	"time"

	"reelkeeper/internal/config"
)

// State is the provider health state.
type State int

const (
	StateNormal State = iota
	StateThrottle
	StateCacheOnly
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateThrottle:
		return "THROTTLE"
	case StateCacheOnly:
		return "CACHE_ONLY"
	default:
		return "UNKNOWN"
	}
}

// Settings tunes the state machine.
type Settings struct {
	DefaultBackoff  time.Duration
	Window          int
	ErrorThreshold  float64
	CacheOnlyPeriod time.Duration
}

// SettingsFromConfig converts the rate limit configuration.
func SettingsFromConfig(cfg config.RateLimit) Settings {
	return Settings{
		DefaultBackoff:  time.Duration(cfg.DefaultBackoffSeconds) * time.Second,
		Window:          cfg.ErrorWindow,
		ErrorThreshold:  cfg.ErrorThreshold,
		CacheOnlyPeriod: time.Duration(cfg.CacheOnlySeconds) * time.Second,
	}
}

// StateMachine is safe for concurrent use.
type StateMachine struct {
	mu       sync.Mutex
	settings Settings
	state    State
	until    time.Time
	outcomes []bool
	next     int
	filled   int
	now      func() time.Time
}

// NewStateMachine starts in NORMAL.
func NewStateMachine(settings Settings) *StateMachine {
	if settings.Window < 1 {
		settings.Window = 1
	}
	if settings.DefaultBackoff <= 0 {
		settings.DefaultBackoff = 2 * time.Second
	}
	return &StateMachine{
		settings: settings,
		outcomes: make([]bool, settings.Window),
		now:      time.Now,
	}
}

// State returns the current state after applying elapsed-time transitions.
func (m *StateMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	return m.state
}

// ShouldMakeRequest reports whether a provider call may be made now.
func (m *StateMachine) ShouldMakeRequest() bool {
	return m.State() == StateNormal
}

// RetryDelay returns how long until requests resume, zero in NORMAL.
func (m *StateMachine) RetryDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	if m.state == StateNormal {
		return 0
	}
	if d := m.until.Sub(m.now()); d > 0 {
		return d
	}
	return 0
}

// RecordSuccess notes a successful call.
func (m *StateMachine) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.push(false)
}

// RecordError notes a failed call and may enter CACHE_ONLY.
func (m *StateMachine) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.push(true)
	m.evaluate()
}

// RecordRateLimited enters THROTTLE for retryAfter, or the default backoff
// when retryAfter is not positive. CACHE_ONLY is not downgraded.
func (m *StateMachine) RecordRateLimited(retryAfter time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.push(true)
	if m.evaluate() {
		return
	}
	if retryAfter <= 0 {
		retryAfter = m.settings.DefaultBackoff
	}
	m.state = StateThrottle
	m.until = m.now().Add(retryAfter)
}

func (m *StateMachine) advance() {
	if m.state == StateNormal || m.now().Before(m.until) {
		return
	}
	if m.state == StateCacheOnly {
		m.resetWindow()
	}
	m.state = StateNormal
	m.until = time.Time{}
}

func (m *StateMachine) push(failed bool) {
	m.outcomes[m.next] = failed
	m.next = (m.next + 1) % len(m.outcomes)
	if m.filled < len(m.outcomes) {
		m.filled++
	}
}

// evaluate enters CACHE_ONLY once a full window exceeds the error threshold.
func (m *StateMachine) evaluate() bool {
	if m.state == StateCacheOnly {
		return true
	}
	if m.filled < len(m.outcomes) {
		return false
	}
	failures := 0
	for _, failed := range m.outcomes {
		if failed {
			failures++
		}
	}
	if float64(failures)/float64(len(m.outcomes)) <= m.settings.ErrorThreshold {
		return false
	}
	m.state = StateCacheOnly
	m.until = m.now().Add(m.settings.CacheOnlyPeriod)
	return true
}

func (m *StateMachine) resetWindow() {
	for i := range m.outcomes {
		m.outcomes[i] = false
	}
	m.next = 0
	m.filled = 0
}
