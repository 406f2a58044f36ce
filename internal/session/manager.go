package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/philles99/opsie/internal/identity"
	"github.com/philles99/opsie/internal/instrumentation"
	"github.com/philles99/opsie/internal/logging"
	"github.com/philles99/opsie/internal/supabase"
)

// defaultPollInterval is how often the active email's notes are refreshed.
const defaultPollInterval = 15 * time.Second

// NoteSource lists collaboration notes for a message.
type NoteSource interface {
	ListNotes(ctx context.Context, teamID, externalID string) ([]supabase.Note, error)
	ListNotesSince(ctx context.Context, teamID, externalID string, since time.Time) ([]supabase.Note, error)
}

// State is a snapshot of the active email.
type State struct {
	Item     identity.MailItem
	Identity identity.EmailIdentity
	Match    identity.Match
	Notes    []supabase.Note
	TeamID   string
	OpenedAt time.Time
}

// Manager owns the active email. All methods are safe for concurrent use.
type Manager struct {
	resolver *identity.Resolver
	matcher  *identity.Matcher
	notes    NoteSource
	logger   *slog.Logger

	pollInterval time.Duration

	// onNotes, when set, is invoked outside the lock for each batch of
	// newly seen notes on the active email.
	onNotes func(State, []supabase.Note)

	metrics *instrumentation.Metrics

	mu         sync.Mutex
	gen        uint64
	current    *State
	cancelPoll context.CancelFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithPollInterval overrides how often notes are polled.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithNotesCallback registers a callback for newly arrived notes.
func WithNotesCallback(fn func(State, []supabase.Note)) Option {
	return func(m *Manager) {
		m.onNotes = fn
	}
}

// WithMetrics records identity-upgrade outcomes on the given instruments.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a session manager.
func NewManager(resolver *identity.Resolver, matcher *identity.Matcher, notes NoteSource, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		resolver:     resolver,
		matcher:      matcher,
		notes:        notes,
		logger:       logging.WithService(logger, "session"),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open makes the given email the active one. Any previous session is
// replaced and its background work is cancelled. The returned state is a
// snapshot; later identity upgrades and note batches only mutate the
// manager's copy.
func (m *Manager) Open(ctx context.Context, item *identity.MailItem, teamID string) (State, error) {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	if m.cancelPoll != nil {
		m.cancelPoll()
		m.cancelPoll = nil
	}
	m.mu.Unlock()

	res := m.resolver.Resolve(ctx, *item)
	lookup := identity.Lookup{
		FinalID:     res.Identity.FinalID,
		SenderEmail: item.SenderEmail,
		Timestamp:   item.Timestamp,
		TeamID:      teamID,
	}

	var (
		match identity.Match
		notes []supabase.Note
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		match = m.matcher.FindExisting(gctx, lookup)
		return nil
	})
	g.Go(func() error {
		if m.notes == nil || teamID == "" {
			return nil
		}
		rows, err := m.notes.ListNotes(gctx, teamID, res.Identity.FinalID)
		if err != nil {
			// Notes are advisory; the session opens without them
			m.logger.Warn("initial notes fetch failed", logging.Err(err))
			return nil
		}
		notes = rows
		return nil
	})
	_ = g.Wait()

	state := State{
		Item:     *item,
		Identity: res.Identity,
		Match:    match,
		Notes:    notes,
		TeamID:   teamID,
		OpenedAt: time.Now(),
	}

	pollCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if gen != m.gen {
		// Another email was opened while we resolved this one
		m.mu.Unlock()
		cancel()
		return state, nil
	}
	m.current = &state
	m.cancelPoll = cancel
	m.mu.Unlock()

	if res.Upgrade != nil {
		go m.awaitUpgrade(pollCtx, gen, lookup, res.Upgrade)
	}
	if m.notes != nil && teamID != "" {
		go m.pollNotes(pollCtx, gen, teamID, res.Identity.FinalID)
	}
	return state, nil
}

// Current returns a snapshot of the active email, or false when none is
// open.
func (m *Manager) Current() (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return State{}, false
	}
	return *m.current, true
}

// Close clears the active email and stops its background work.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if m.cancelPoll != nil {
		m.cancelPoll()
		m.cancelPoll = nil
	}
	m.current = nil
}

// awaitUpgrade waits for the host to deliver an upgraded canonical ID and
// re-runs the existence check under it. Results for stale generations are
// dropped.
func (m *Manager) awaitUpgrade(ctx context.Context, gen uint64, lookup identity.Lookup, upgrade <-chan string) {
	select {
	case <-ctx.Done():
		return
	case upgraded, ok := <-upgrade:
		if !ok || upgraded == "" || upgraded == lookup.FinalID {
			m.recordUpgrade(ctx, instrumentation.UpgradeUnavailable)
			return
		}
		lookup.FinalID = upgraded
		match := m.matcher.FindExisting(ctx, lookup)

		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen || m.current == nil {
			m.recordUpgrade(ctx, instrumentation.UpgradeStale)
			return
		}
		m.current.Identity.ApplyUpgrade(upgraded)
		if match.Exists {
			m.current.Match = match
		}
		m.recordUpgrade(ctx, instrumentation.UpgradeApplied)
		m.logger.Debug("applied identity upgrade",
			logging.MessageHash(upgraded), logging.FoundBy(string(match.FoundBy)))
	}
}

func (m *Manager) recordUpgrade(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordIdentityUpgrade(ctx, result)
	}
}

// pollNotes periodically fetches notes added to the active email after the
// session opened.
func (m *Manager) pollNotes(ctx context.Context, gen uint64, teamID, externalID string) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	lastSeen := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rows, err := m.notes.ListNotesSince(ctx, teamID, externalID, lastSeen)
		if err != nil {
			m.logger.Debug("notes poll failed", logging.Err(err))
			continue
		}
		if len(rows) == 0 {
			continue
		}
		lastSeen = time.Now()

		m.mu.Lock()
		if gen != m.gen || m.current == nil {
			m.mu.Unlock()
			return
		}
		m.current.Notes = append(m.current.Notes, rows...)
		snapshot := *m.current
		m.mu.Unlock()

		if m.onNotes != nil {
			m.onNotes(snapshot, rows)
		}
	}
}
