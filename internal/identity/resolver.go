package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/philles99/opsie/internal/logging"
)

// urlFormatPattern matches the provider URL-token identifier format: the
// literal prefix "AAkAL" followed by base64url-safe characters (including
// percent escapes as they appear in page URLs).
var urlFormatPattern = regexp.MustCompile(`AAkAL[A-Za-z0-9+/=%]+`)

// syntheticDelimiter joins the fallback identifier components.
const syntheticDelimiter = "::"

// syntheticPrefix marks identifiers manufactured by the resolver itself.
const syntheticPrefix = "generated-"

// Resolver derives an EmailIdentity for a mail item. The zero value is not
// usable; construct with NewResolver.
type Resolver struct {
	host   Host
	logger *slog.Logger
}

// NewResolver creates a resolver. host may be nil for clients that expose no
// REST capability surface; the resolver then works from item metadata alone.
func NewResolver(host Host, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		host:   host,
		logger: logging.WithService(logger, "identity"),
	}
}

// Resolution is the two-channel result of Resolve: an immediately-available
// best-effort identity, and a later-arriving optional upgrade.
type Resolution struct {
	// Identity is the synchronously-derived identity, usable right away.
	Identity EmailIdentity

	// Upgrade delivers at most one upgraded identifier resolved through the
	// host's REST API, then is closed. It is closed without a value when no
	// upgrade is available. The upgrade may arrive after the synchronous
	// identifier was already used for a lookup; two identifiers referring to
	// the same email within one session is an accepted inconsistency window.
	// Consumers must check that the email is still the active one before
	// applying the upgrade.
	Upgrade <-chan string
}

// Resolve derives the best available stable identifier for item.
//
// Candidates are considered in priority order: host REST-ID conversion,
// conversation ID, native ID, internet-message-id, synthetic ID. A provider
// URL token found in any candidate source or the page URL overrides the chosen
// candidate; otherwise any text before the last ":" is stripped to defend
// against prefixed formats like "ID:xxxxx". Every derivation step is
// independently fault-tolerant: a missing capability or a conversion error
// means that step simply produced no candidate.
//
// Resolve never blocks on the network. The asynchronous REST lookup runs
// independently and reports through Resolution.Upgrade.
func (r *Resolver) Resolve(ctx context.Context, item MailItem) *Resolution {
	id := EmailIdentity{
		RawItemID:         item.NativeID,
		ConversationID:    item.ConversationID,
		InternetMessageID: item.InternetMessageID,
	}

	var candidate string
	if r.host != nil && item.NativeID != "" {
		restID, err := r.host.ConvertToRestID(ctx, item.NativeID)
		switch {
		case errors.Is(err, ErrCapabilityUnavailable):
			r.logger.Debug("REST-ID conversion unavailable on this host")
		case err != nil:
			r.logger.Warn("REST-ID conversion failed", logging.Err(err))
		case restID != "":
			id.RestID = restID
			candidate = restID
		}
	}
	if candidate == "" && item.ConversationID != "" {
		candidate = item.ConversationID
	}
	if candidate == "" && item.NativeID != "" {
		candidate = item.NativeID
	}
	if candidate == "" && item.InternetMessageID != "" {
		candidate = item.InternetMessageID
	}
	if candidate == "" {
		id.SyntheticID = syntheticID(item)
		candidate = id.SyntheticID
		if candidate == "" {
			r.logger.Warn("email is unidentifiable, no identifier source available")
		}
	}

	// The URL-token format wins over whatever was chosen above, wherever it
	// appears: within the candidate itself, within a higher-priority raw
	// identifier, or in the page URL.
	if token := extractURLFormatID(candidate, id.RestID, item.NativeID, item.ConversationID, item.InternetMessageID, item.PageURL); token != "" {
		id.ExtractedURLFormatID = token
		candidate = token
	} else if i := strings.LastIndex(candidate, ":"); i >= 0 {
		candidate = candidate[i+1:]
	}
	id.FinalID = candidate

	upgrade := make(chan string, 1)
	if r.host != nil && item.NativeID != "" {
		go r.resolveUpgrade(ctx, item.NativeID, upgrade)
	} else {
		close(upgrade)
	}

	return &Resolution{Identity: id, Upgrade: upgrade}
}

// resolveUpgrade performs the best-effort REST message lookup. Failures are
// logged and swallowed: the synchronous identity stays authoritative.
func (r *Resolver) resolveUpgrade(ctx context.Context, nativeID string, out chan<- string) {
	defer close(out)

	restID, err := r.host.LookupMessageID(ctx, nativeID)
	if err != nil {
		if errors.Is(err, ErrCapabilityUnavailable) {
			r.logger.Debug("REST message lookup unavailable on this host")
		} else {
			r.logger.Debug("REST message lookup failed", logging.Err(err))
		}
		return
	}
	if restID != "" {
		out <- restID
	}
}

// syntheticID manufactures a deterministic identifier from item metadata.
// Returns "" when no component is available at all.
func syntheticID(item MailItem) string {
	if item.Mailbox == "" && item.HostName == "" && item.Timestamp == "" &&
		item.Subject == "" && item.SenderEmail == "" {
		return ""
	}
	raw := strings.Join([]string{
		item.Mailbox,
		item.HostName,
		item.Timestamp,
		item.Subject,
		item.SenderEmail,
	}, syntheticDelimiter)
	enc := base64.StdEncoding.EncodeToString([]byte(raw))
	return syntheticPrefix + strings.TrimRight(enc, "=")
}

// extractURLFormatID returns the first URL-token match found in any of the
// given sources, in order.
func extractURLFormatID(sources ...string) string {
	for _, s := range sources {
		if s == "" {
			continue
		}
		if token := urlFormatPattern.FindString(s); token != "" {
			return token
		}
	}
	return ""
}
