package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/philles99/opsie/internal/logging"
)

// DefaultMatchWindow is the half-width of the secondary-check timestamp
// window. The value is a heuristic carried over from production behavior, not
// a law; tune it per deployment via WithWindow.
const DefaultMatchWindow = 2 * time.Minute

// unknownUser is the fallback display identity when the directory lookup
// fails or the record has no creator.
var unknownUser = User{Name: "Unknown User"}

// timestampFormats are tried in order when parsing client-supplied timestamps.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// Matcher checks the team store for prior records of an email. Each call is a
// stateless request/response; retries, if any, are the caller's concern.
type Matcher struct {
	store  MessageStore
	users  UserDirectory
	logger *slog.Logger

	window          time.Duration
	strictTimestamp bool
	now             func() time.Time
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithWindow overrides the secondary-check timestamp window half-width.
func WithWindow(d time.Duration) MatcherOption {
	return func(m *Matcher) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithStrictTimestamps disables the secondary check on malformed timestamps
// instead of substituting the current time. The substitution is the original
// production behavior but can produce spurious matches against unrelated
// recent emails.
func WithStrictTimestamps() MatcherOption {
	return func(m *Matcher) {
		m.strictTimestamp = true
	}
}

// WithClock overrides the clock used for the malformed-timestamp fallback.
func WithClock(now func() time.Time) MatcherOption {
	return func(m *Matcher) {
		m.now = now
	}
}

// NewMatcher creates a matcher over the given store and user directory.
func NewMatcher(store MessageStore, users UserDirectory, logger *slog.Logger, opts ...MatcherOption) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Matcher{
		store:  store,
		users:  users,
		logger: logging.WithService(logger, "identity"),
		window: DefaultMatchWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lookup identifies the email whose existence is checked.
type Lookup struct {
	// FinalID is the resolved identifier; may be empty for unidentifiable
	// emails, which skips the primary check.
	FinalID string

	// SenderEmail and Timestamp drive the secondary check; both must be
	// present for it to run.
	SenderEmail string
	Timestamp   string

	// TeamID scopes all queries. Without it no network call is made.
	TeamID string
}

// FindExisting checks the team store for a prior record of the email.
//
// The primary check queries by exact external ID; the secondary check, run
// only when the primary found nothing, queries by sender within a timestamp
// window and picks the row closest to the query timestamp (first row wins on
// exact ties). Store and directory failures are never propagated: each check
// degrades to "no match by this method", because existence checking is
// advisory and must not block viewing or saving an email.
func (m *Matcher) FindExisting(ctx context.Context, l Lookup) Match {
	if l.TeamID == "" {
		return Match{FoundBy: FoundByNone}
	}

	if l.FinalID != "" {
		rows, err := m.store.MessagesByExternalID(ctx, l.TeamID, l.FinalID)
		if err != nil {
			m.logger.Warn("primary existence check failed",
				logging.Operation("find_existing"), logging.Err(err))
		} else if len(rows) > 0 {
			// The store is expected to enforce external-id uniqueness per
			// team; if it does not, first row wins.
			return m.matched(ctx, FoundByPrimary, rows[0])
		}
	}

	if l.SenderEmail == "" || l.Timestamp == "" {
		return Match{FoundBy: FoundByNone}
	}

	ts, ok := parseTimestamp(l.Timestamp)
	if !ok {
		if m.strictTimestamp {
			m.logger.Warn("malformed timestamp, skipping secondary check",
				logging.Operation("find_existing"))
			return Match{FoundBy: FoundByNone}
		}
		// Deliberate lossy fallback: a window around "now" still catches a
		// just-saved duplicate, at the cost of possible spurious matches.
		m.logger.Warn("malformed timestamp, substituting current time",
			logging.Operation("find_existing"))
		ts = m.now()
	}

	rows, err := m.store.MessagesBySenderWindow(ctx, l.TeamID, l.SenderEmail, ts.Add(-m.window), ts.Add(m.window))
	if err != nil {
		m.logger.Warn("secondary existence check failed",
			logging.Operation("find_existing"), logging.Err(err))
		return Match{FoundBy: FoundByNone}
	}
	if len(rows) == 0 {
		return Match{FoundBy: FoundByNone}
	}

	best := rows[0]
	bestDelta := absDuration(best.Timestamp.Sub(ts))
	for _, row := range rows[1:] {
		if delta := absDuration(row.Timestamp.Sub(ts)); delta < bestDelta {
			best = row
			bestDelta = delta
		}
	}
	return m.matched(ctx, FoundBySecondary, best)
}

// matched assembles the Match for a found record, enriching it with display
// identities for the creator and, when present, the handling actor.
func (m *Matcher) matched(ctx context.Context, foundBy FoundBy, rec StoredMessage) Match {
	match := Match{
		Exists:      true,
		FoundBy:     foundBy,
		Record:      &rec,
		MatchedUser: m.displayIdentity(ctx, rec.CreatedBy),
	}
	if rec.HandledBy != "" {
		match.HandledByUser = m.displayIdentity(ctx, rec.HandledBy)
	}
	return match
}

// displayIdentity resolves a user id to a display identity, tolerating
// directory failures.
func (m *Matcher) displayIdentity(ctx context.Context, userID string) *User {
	fallback := unknownUser
	if userID == "" || m.users == nil {
		return &fallback
	}
	u, err := m.users.UserByID(ctx, userID)
	if err != nil || u == nil {
		m.logger.Debug("user directory lookup failed",
			logging.Operation("display_identity"), logging.Err(err))
		return &fallback
	}
	return u
}

// parseTimestamp normalizes a client-supplied timestamp string.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
