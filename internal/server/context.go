package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/philles99/opsie/internal/ai"
	"github.com/philles99/opsie/internal/gmail"
	"github.com/philles99/opsie/internal/google"
	"github.com/philles99/opsie/internal/identity"
	"github.com/philles99/opsie/internal/instrumentation"
	"github.com/philles99/opsie/internal/session"
	"github.com/philles99/opsie/internal/supabase"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx          context.Context
	cancel       context.CancelFunc
	store        *supabase.Client
	assistant    *ai.Client
	logger       *slog.Logger
	gmailClients map[string]*gmail.Client // Maps account name to Gmail client
	tokens       google.TokenProvider
	sessions     map[string]*session.Manager
	matcher      *identity.Matcher
	metrics      *instrumentation.Metrics
	auditLogger  *instrumentation.AuditLogger
	mu           sync.RWMutex
	shutdown     bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, store *supabase.Client, assistant *ai.Client, logger *slog.Logger) (*ServerContext, error) {
	if store == nil {
		return nil, fmt.Errorf("supabase client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	// Initialize client maps
	gmailClients := make(map[string]*gmail.Client)
	tokens := google.NewFileTokenProvider()

	// Try to create default Gmail client, but don't fail if token is missing
	// Clients will be lazily initialized when first needed
	if tokens.HasTokenForAccount("default") {
		gmailClient, err := gmail.NewClientWithProvider(shutdownCtx, "default", tokens)
		if err != nil {
			logger.Warn("failed to create Gmail client for default account", "error", err)
		} else {
			gmailClients["default"] = gmailClient
		}
	}

	adapter := supabase.NewIdentityStore(store)

	return &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		store:        store,
		assistant:    assistant,
		logger:       logger,
		gmailClients: gmailClients,
		tokens:       tokens,
		sessions:     make(map[string]*session.Manager),
		matcher:      identity.NewMatcher(adapter, adapter, logger),
		shutdown:     false,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Store returns the Supabase backend client
func (sc *ServerContext) Store() *supabase.Client {
	return sc.store
}

// Assistant returns the edge-function AI client, or nil if not configured
func (sc *ServerContext) Assistant() *ai.Client {
	return sc.assistant
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Matcher returns the shared existence matcher backed by the store
func (sc *ServerContext) Matcher() *identity.Matcher {
	return sc.matcher
}

// SetInstrumentation installs the metrics recorder and audit logger from
// an instrumentation provider. Safe to skip when instrumentation is disabled.
func (sc *ServerContext) SetInstrumentation(provider *instrumentation.Provider) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if provider != nil {
		sc.metrics = provider.Metrics()
		sc.store.SetMetrics(sc.metrics)
	}
	sc.auditLogger = instrumentation.NewAuditLogger(sc.logger)
}

// SetMetrics sets the metrics recorder directly. Used by tests and by
// callers that construct a recorder without a full provider.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
	sc.store.SetMetrics(metrics)
}

// Metrics returns the metrics recorder, or nil if instrumentation is not configured
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil if instrumentation is not configured
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// GmailClientForAccount returns the Gmail client for a specific account
// Creates and caches the client if it doesn't exist yet
// Returns nil if the account has no token
func (sc *ServerContext) GmailClientForAccount(account string) *gmail.Client {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	// Check if client already exists
	if client, ok := sc.gmailClients[account]; ok {
		return client
	}

	// Try to create client if token exists
	if !sc.tokens.HasTokenForAccount(account) {
		return nil
	}

	client, err := gmail.NewClientWithProvider(sc.ctx, account, sc.tokens)
	if err != nil {
		sc.logger.Warn("failed to create Gmail client", "account", account, "error", err)
		return nil
	}

	sc.gmailClients[account] = client
	return client
}

// SetTokenProvider replaces the source of Google OAuth tokens. Cached Gmail
// clients built from the previous provider are dropped.
func (sc *ServerContext) SetTokenProvider(provider google.TokenProvider) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.tokens = provider
	sc.gmailClients = make(map[string]*gmail.Client)
}

// GmailClient returns the Gmail client for the default account
func (sc *ServerContext) GmailClient() *gmail.Client {
	return sc.GmailClientForAccount("default")
}

// SetGmailClientForAccount sets the Gmail client for a specific account
func (sc *ServerContext) SetGmailClientForAccount(account string, client *gmail.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gmailClients[account] = client
}

// SetGmailClient sets the Gmail client for the default account
func (sc *ServerContext) SetGmailClient(client *gmail.Client) {
	sc.SetGmailClientForAccount("default", client)
}

// ResolverForAccount returns an identity resolver backed by the account's
// mail host. Returns nil if the account has no authenticated client.
func (sc *ServerContext) ResolverForAccount(account string) *identity.Resolver {
	client := sc.GmailClientForAccount(account)
	if client == nil {
		return nil
	}
	return identity.NewResolver(client, sc.logger)
}

// SessionManagerForAccount returns the email session manager for an account.
// Creates and caches one if it doesn't exist yet. Returns nil if the account
// has no authenticated mail client.
func (sc *ServerContext) SessionManagerForAccount(account string) *session.Manager {
	sc.mu.RLock()
	mgr, ok := sc.sessions[account]
	sc.mu.RUnlock()
	if ok {
		return mgr
	}

	resolver := sc.ResolverForAccount(account)
	if resolver == nil {
		return nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if mgr, ok := sc.sessions[account]; ok {
		return mgr
	}
	var opts []session.Option
	if sc.metrics != nil {
		opts = append(opts, session.WithMetrics(sc.metrics))
	}
	mgr = session.NewManager(resolver, sc.matcher, sc.store, sc.logger, opts...)
	sc.sessions[account] = mgr
	return mgr
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	for _, mgr := range sc.sessions {
		mgr.Close()
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
