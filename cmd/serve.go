package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/philles99/opsie/internal/instrumentation"
	"github.com/philles99/opsie/internal/server"
	"github.com/philles99/opsie/internal/tools/email_tools"
	"github.com/philles99/opsie/internal/tools/notes_tools"
	"github.com/philles99/opsie/internal/tools/team_tools"
)

// MetricsConfig holds the metrics server settings for the serve command.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		transport      string
		httpAddr       string
		yolo           bool
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing the email
assistant tools to AI clients.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode, providing only safe
  operations. Use --yolo to enable write operations (saving messages,
  adding notes, sending replies, team management).

Configuration:
  The team workspace backend is configured via environment variables:
    OPSIE_SUPABASE_URL       Supabase project base URL (required)
    OPSIE_SUPABASE_ANON_KEY  Supabase anonymous API key (required)
    OPSIE_FUNCTIONS_URL      Edge Functions base URL (optional)

  Mailbox access uses the Google OAuth token stored by "opsie auth-google".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}
			return runServe(transport, debugMode, httpAddr, yolo, metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "Transport type (stdio or streamable-http)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "Address for the HTTP server (streamable-http transport)")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (default: read-only mode)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", false, "Enable the Prometheus metrics server (or METRICS_ENABLED=true)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Address for the metrics server (or METRICS_ADDR)")

	return cmd
}

func runServe(transport string, debugMode bool, httpAddr string, yolo bool, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := setupLogger(debugMode)
	slog.SetDefault(logger)

	// Load metrics config from environment if not set via flags
	if !metricsConfig.Enabled {
		if os.Getenv("METRICS_ENABLED") == "true" {
			metricsConfig.Enabled = true
		}
	}
	if metricsConfig.Addr == "" || metricsConfig.Addr == ":9090" {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			metricsConfig.Addr = addr
		}
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			if transport != "stdio" {
				log.Printf("Error during instrumentation shutdown: %v", err)
			}
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if transport != "stdio" && metricsConfig.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			log.Printf("Metrics server started on %s", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			shutdownTimeout, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelTimeout()
			if err := metricsServer.Shutdown(shutdownTimeout); err != nil {
				log.Printf("Error shutting down metrics server: %v", err)
			}
		}()
	}

	// Connect to the team workspace backend
	store, err := newStoreClient(shutdownCtx, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to team workspace: %w", err)
	}

	// The analysis functions are optional: without them only the summarize
	// and draft tools are unavailable.
	assistant, err := newAssistantClient(store, logger)
	if err != nil {
		logger.Warn("Analysis functions unavailable", "error", err)
		assistant = nil
	}

	serverContext, err := server.NewServerContext(shutdownCtx, store, assistant, logger)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	if provider.Enabled() {
		serverContext.SetInstrumentation(provider)
	}

	mcpSrv := mcpserver.NewMCPServer("opsie", version,
		mcpserver.WithToolCapabilities(true),
	)

	readOnly := !yolo
	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	switch transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, httpAddr, metricsConfig, provider)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}
}

func setupLogger(debugMode bool) *slog.Logger {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tool groups.
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Email",
			register: func() error {
				return email_tools.RegisterEmailTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Assist",
			register: func() error {
				return email_tools.RegisterAssistTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Notes",
			register: func() error {
				return notes_tools.RegisterNotesTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Team",
			register: func() error {
				return team_tools.RegisterTeamTools(mcpSrv, ctx, readOnly)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}

	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, addr string, metricsConfig MetricsConfig, instrProvider *instrumentation.Provider) error {
	httpServer := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	)

	mux := http.NewServeMux()

	var mcpHandler http.Handler = httpServer
	if instrProvider != nil && instrProvider.Enabled() {
		mcpHandler = instrumentHandler(instrProvider.Metrics(), "/mcp", mcpHandler)
	}
	mux.Handle("/mcp", mcpHandler)

	healthChecker := server.NewHealthChecker(serverContext)
	healthChecker.RegisterHealthEndpoints(mux)
	healthChecker.SetReady(true)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	fmt.Printf("Streamable HTTP server starting on %s\n", addr)
	fmt.Printf("  HTTP endpoint: /mcp\n")
	fmt.Printf("  Health endpoints: /healthz, /readyz\n")
	if metricsConfig.Enabled {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", metricsConfig.Addr)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownTimeout, cancelTimeout := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancelTimeout()
		if err := srv.Shutdown(shutdownTimeout); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}

// instrumentHandler records request metrics for a single route.
func instrumentHandler(metrics *instrumentation.Metrics, path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
