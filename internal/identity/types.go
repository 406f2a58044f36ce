package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MailItem carries the raw metadata of the message currently open in the mail
// client. Every field is optional; the resolver works with whatever the host
// surface exposes.
type MailItem struct {
	// NativeID is the client-native item identifier (e.g. an EWS item ID).
	// Opaque and unstable across protocol surfaces.
	NativeID string

	// ConversationID is the thread-level identifier, coarser-grained than a
	// message identifier.
	ConversationID string

	// InternetMessageID is the RFC 822 Message-ID header value, when the
	// client exposes it.
	InternetMessageID string

	// Subject is the message subject line.
	Subject string

	// SenderEmail is the sender's address.
	SenderEmail string

	// Timestamp is the creation time of the message as reported by the
	// client, ISO-8601 or any parseable date string.
	Timestamp string

	// Mailbox is the address of the mailbox owner viewing the message.
	Mailbox string

	// HostName is the display name of the mail host (e.g. "Outlook").
	HostName string

	// PageURL is the URL the client is currently displaying, if any. Provider
	// URL tokens are opportunistically extracted from it.
	PageURL string
}

// EmailIdentity is the best available stable reference to a mail item. It is
// derived, never persisted; a fresh one is computed each time an email is
// opened.
type EmailIdentity struct {
	RawItemID         string
	RestID            string
	ConversationID    string
	InternetMessageID string

	// ExtractedURLFormatID is the provider URL-token substring
	// (AAkAL[A-Za-z0-9+/=%]+) pulled out of any identifier or the page URL.
	// When present it always wins, because the backend preferentially indexes
	// this format and it is stable across client surfaces.
	ExtractedURLFormatID string

	// SyntheticID is the manufactured fallback identifier, used only when the
	// client supplies no identifier at all.
	SyntheticID string

	// FinalID is the identifier actually used for lookups and saves. Empty
	// means the email is unidentifiable: callers skip the existence check and
	// save without dedup.
	FinalID string
}

// Identifiable reports whether the item could be identified at all.
func (e EmailIdentity) Identifiable() bool {
	return e.FinalID != ""
}

// ApplyUpgrade installs a REST identifier delivered after the synchronous
// resolution finished. The REST lookup is the authoritative source, so it
// replaces whatever the chain produced, URL tokens included. Reports whether
// the identity changed.
func (e *EmailIdentity) ApplyUpgrade(restID string) bool {
	if restID == "" || restID == e.FinalID {
		return false
	}
	e.RestID = restID
	e.FinalID = restID
	return true
}

// FoundBy names the method that located an existing record.
type FoundBy string

const (
	// FoundByPrimary means the record matched by exact resolved identifier.
	FoundByPrimary FoundBy = "primary"

	// FoundBySecondary means the record matched by sender address and
	// timestamp proximity.
	FoundBySecondary FoundBy = "secondary"

	// FoundByNone means no record matched.
	FoundByNone FoundBy = "none"
)

// StoredMessage is a previously-saved record of an email in the team store,
// reduced to the fields the matcher reads.
type StoredMessage struct {
	ID           string
	ExternalID   string
	SenderEmail  string
	Timestamp    time.Time
	Summary      string
	Urgency      int
	HandledAt    *time.Time
	HandledBy    string
	HandlingNote string
	CreatedBy    string
}

// Handled reports whether the record carries handling state.
func (m StoredMessage) Handled() bool {
	return m.HandledAt != nil || m.HandledBy != ""
}

// User is the display identity of a team member.
type User struct {
	Name  string
	Email string
}

// Match is the result of checking the team store for a prior record of the
// current email. It is a snapshot of external state, recomputed on each load
// and never cached across emails.
type Match struct {
	Exists  bool
	FoundBy FoundBy

	// Record is the matched row, if any.
	Record *StoredMessage

	// MatchedUser is the resolved display identity of whoever created the
	// matched record.
	MatchedUser *User

	// HandledByUser is the resolved display identity of the handling actor,
	// when the record has one.
	HandledByUser *User
}

// ErrCapabilityUnavailable is reported by hosts that do not support a
// requested capability on the current client or platform. The resolver treats
// it as "this step produced no candidate" and falls through.
var ErrCapabilityUnavailable = errors.New("host capability unavailable")

// Host is the mail-host capability surface the resolver depends on. Adapters
// for concrete hosts live in internal/gmail and internal/outlook.
type Host interface {
	// ConvertToRestID converts a client-native item ID to the host's
	// normalized REST identifier format. Hosts without the capability return
	// ErrCapabilityUnavailable.
	ConvertToRestID(ctx context.Context, nativeID string) (string, error)

	// LookupMessageID resolves the authoritative message identifier through
	// the host's REST API. This is a network round-trip: token acquisition
	// followed by a message lookup by native ID.
	LookupMessageID(ctx context.Context, nativeID string) (string, error)
}

// MessageStore is the slice of the team store the matcher queries.
type MessageStore interface {
	// MessagesByExternalID returns records whose external message ID and team
	// match exactly.
	MessagesByExternalID(ctx context.Context, teamID, externalID string) ([]StoredMessage, error)

	// MessagesBySenderWindow returns records from senderEmail within the
	// [from, to] timestamp range for the team.
	MessagesBySenderWindow(ctx context.Context, teamID, senderEmail string, from, to time.Time) ([]StoredMessage, error)
}

// UserDirectory resolves team-member display identities. It is a best-effort
// enrichment, never a hard dependency.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (*User, error)
}

// HostError wraps a failure of a host capability invocation.
type HostError struct {
	// Op is the capability that failed (e.g. "convert", "lookup").
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HostError) Error() string {
	return fmt.Sprintf("host %s: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface.
func (e *HostError) Unwrap() error {
	return e.Err
}
