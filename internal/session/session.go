// Package session implements the per-space sync session state machine of
// spec.md §4.F: Idle→Collecting→Selected→Syncing→{Done|Cancelled|Expired}.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/observability"
)

// State names a session's position in the state machine. Idle is implicit:
// the absence of a Manager entry for a space IS the idle state.
type State int

const (
	StateCollecting State = iota
	StateSelected
	StateSyncing
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateSelected:
		return "selected"
	case StateSyncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// Candidate is one offer received while collecting, carrying enough of the
// remote's summary to run selectBestCandidate.
type Candidate struct {
	InboxAddress model.InboxAddress
	Summary      model.Summary
}

// Session is per-space sync state. Exported fields are read-only to callers;
// mutation happens exclusively through Manager methods holding the lock.
type Session struct {
	SpaceID    model.SpaceID
	State      State
	Expiry     model.Timestamp
	Candidates []Candidate
	InProgress bool
	SyncTarget *model.InboxAddress

	timer clock.Timer
}

// Config carries the tunables of spec.md §6's configuration table that bear
// on session lifetime.
type Config struct {
	RequestExpiry         time.Duration
	AggressiveSyncTimeout time.Duration

	// CandidateRateLimit and CandidateBurst bound how many AddCandidate
	// calls a single space accepts per second, guarding against a
	// misbehaving or malicious peer flooding a collection window with
	// repeated offers. A CandidateRateLimit of zero (or less) means
	// unlimited; with a positive rate, a zero CandidateBurst accepts nothing.
	CandidateRateLimit rate.Limit
	CandidateBurst     int
}

// DefaultConfig matches spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		RequestExpiry:         30 * time.Second,
		AggressiveSyncTimeout: 1 * time.Second,
		CandidateRateLimit:    50,
		CandidateBurst:        50,
	}
}

// OnInitiateSync is invoked (async, from a timer) when a collection window
// closes and a target has been selected.
type OnInitiateSync func(space model.SpaceID, target model.InboxAddress)

// Manager owns one Session per space, clock-driven timers for expiry and
// aggressive-sync, and candidate selection.
type Manager struct {
	mu       sync.Mutex
	clock    clock.Clock
	cfg      Config
	sessions map[model.SpaceID]*Session
	limiters map[model.SpaceID]*rate.Limiter
	onInit   OnInitiateSync
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithClock injects a fake clock for deterministic tests; production code
// need not call this, the Manager defaults to the real clock.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithConfig overrides the default timeout durations.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// NewManager constructs a session Manager. onInit is called whenever a
// collection window closes with at least one candidate.
func NewManager(onInit OnInitiateSync, opts ...Option) *Manager {
	m := &Manager{
		clock:    clock.New(),
		cfg:      DefaultConfig(),
		sessions: make(map[model.SpaceID]*Session),
		limiters: make(map[model.SpaceID]*rate.Limiter),
		onInit:   onInit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenCollecting implements Idle→Collecting: buildSyncRequest calls this to
// create a fresh session. Any prior session for the space is replaced (its
// timer, if any, is stopped first).
func (m *Manager) OpenCollecting(space model.SpaceID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A superseded session is neither done, cancelled, nor expired - it is
	// simply replaced, so it reports no outcome.
	m.deleteLocked(space, "")

	now := m.clock.Now()
	expiry := model.Timestamp(now.Add(m.cfg.RequestExpiry).UnixMilli())
	s := &Session{
		SpaceID: space,
		State:   StateCollecting,
		Expiry:  expiry,
	}
	s.timer = m.clock.AfterFunc(m.cfg.RequestExpiry, func() {
		m.onExpiryTimer(space)
	})
	m.sessions[space] = s
	observability.ActiveSessions.Inc()
	return s
}

// AddCandidate implements Collecting→Collecting. A candidate arriving after
// expiry (session absent, or not in Collecting) is silently discarded. On
// the first candidate it (re)schedules the aggressive timeout, replacing any
// existing timer per "scheduleSyncInitiation replaces any existing timer".
func (m *Manager) AddCandidate(space model.SpaceID, c Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[space]
	if !ok || s.State != StateCollecting {
		return
	}

	if lim := m.limiterForLocked(space); lim != nil && !lim.Allow() {
		observability.CandidatesThrottled.Inc()
		return
	}

	first := len(s.Candidates) == 0
	s.Candidates = append(s.Candidates, c)

	if first {
		m.scheduleSyncInitiationLocked(s)
	}
}

// limiterForLocked returns the per-space candidate rate limiter, creating it
// lazily, or nil if CandidateRateLimit is unset (unlimited). Caller holds m.mu.
func (m *Manager) limiterForLocked(space model.SpaceID) *rate.Limiter {
	if m.cfg.CandidateRateLimit <= 0 {
		return nil
	}
	lim, ok := m.limiters[space]
	if !ok {
		lim = rate.NewLimiter(m.cfg.CandidateRateLimit, m.cfg.CandidateBurst)
		m.limiters[space] = lim
	}
	return lim
}

// scheduleSyncInitiationLocked replaces any existing timer on s with a fresh
// aggressive-timeout timer. Caller holds m.mu.
func (m *Manager) scheduleSyncInitiationLocked(s *Session) {
	if s.timer != nil {
		s.timer.Stop()
	}
	space := s.SpaceID
	s.timer = m.clock.AfterFunc(m.cfg.AggressiveSyncTimeout, func() {
		m.onAggressiveTimer(space)
	})
}

func (m *Manager) onExpiryTimer(space model.SpaceID) {
	m.mu.Lock()
	s, ok := m.sessions[space]
	if !ok || s.State != StateCollecting {
		m.mu.Unlock()
		return
	}
	target := m.selectAndTransitionLocked(s)
	if target == nil {
		// The window closed with no candidate: the session has expired.
		m.deleteLocked(space, "expired")
	}
	m.mu.Unlock()
	m.notify(space, target)
}

func (m *Manager) onAggressiveTimer(space model.SpaceID) {
	m.mu.Lock()
	s, ok := m.sessions[space]
	if !ok || s.State != StateCollecting {
		m.mu.Unlock()
		return
	}
	target := m.selectAndTransitionLocked(s)
	m.mu.Unlock()
	m.notify(space, target)
}

// selectAndTransitionLocked implements Collecting→Selected: stops the
// outstanding timer and runs selectBestCandidate. Caller holds m.mu.
func (m *Manager) selectAndTransitionLocked(s *Session) *Candidate {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	best := selectBestCandidate(s.Candidates)
	if best == nil {
		return nil
	}
	s.State = StateSelected
	return best
}

func (m *Manager) notify(space model.SpaceID, target *Candidate) {
	if target == nil || m.onInit == nil {
		return
	}
	m.onInit(space, target.InboxAddress)
}

// selectBestCandidate is a deterministic stable sort: message count desc,
// then member count desc; first candidate after sorting wins. Returns nil
// for an empty slice.
func selectBestCandidate(candidates []Candidate) *Candidate {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Summary.MessageCount != sorted[j].Summary.MessageCount {
			return sorted[i].Summary.MessageCount > sorted[j].Summary.MessageCount
		}
		return sorted[i].Summary.MemberCount > sorted[j].Summary.MemberCount
	})
	return &sorted[0]
}

// BuildInitiate implements Selected→Syncing: it picks the best candidate
// from the session's pool, sets inProgress and records the sync target. It
// does not check the session's state, so a Collecting session with
// candidates moves straight to Syncing. Returns false (and deletes the
// session) if the candidate pool is empty, matching buildSyncInitiate's
// "requires at least one candidate; else deletes the session and returns None".
func (m *Manager) BuildInitiate(space model.SpaceID) (model.InboxAddress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[space]
	if !ok {
		return "", false
	}
	best := selectBestCandidate(s.Candidates)
	if best == nil {
		m.deleteLocked(space, "expired")
		return "", false
	}
	s.State = StateSyncing
	s.InProgress = true
	target := best.InboxAddress
	s.SyncTarget = &target
	return target, true
}

// MarkDone implements Syncing→Done: the host calls this once it has applied
// a delta payload carrying isFinal.
func (m *Manager) MarkDone(space model.SpaceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(space, "done")
}

// CancelSync implements any→Cancelled: clears any scheduled timer and
// deletes the session. Outstanding async apply* calls on the same space may
// still complete; they will simply find no session to update.
func (m *Manager) CancelSync(space model.SpaceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(space, "cancelled")
}

// HasActiveSession implements any→Expired's observation side: it reports
// whether a session exists and has not passed its expiry, lazily deleting it
// if it has. Call this before relying on session presence.
func (m *Manager) HasActiveSession(space model.SpaceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[space]
	if !ok {
		return false
	}
	now := model.Timestamp(m.clock.Now().UnixMilli())
	if now > s.Expiry {
		m.deleteLocked(space, "expired")
		return false
	}
	return true
}

// Get returns a snapshot of the session for a space, or nil if absent.
func (m *Manager) Get(space model.SpaceID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[space]
	if !ok {
		return nil
	}
	cp := *s
	cp.Candidates = append([]Candidate(nil), s.Candidates...)
	cp.timer = nil
	return &cp
}

// deleteLocked removes a space's session, if any, stopping its timer and
// updating the active-session gauge. outcome records a terminal transition
// in the sessions-completed counter; an empty outcome (a session being
// superseded by a fresh OpenCollecting) updates only the gauge.
func (m *Manager) deleteLocked(space model.SpaceID, outcome string) {
	s, ok := m.sessions[space]
	if !ok {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	delete(m.sessions, space)
	delete(m.limiters, space)
	observability.ActiveSessions.Dec()
	if outcome != "" {
		observability.SessionsCompleted.WithLabelValues(outcome).Inc()
	}
}
