package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrTeam      = "team"
	attrSource    = "source"
	attrFoundBy   = "found_by"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Backend store metrics
	storeRequestsTotal   metric.Int64Counter
	storeRequestDuration metric.Float64Histogram

	// Identity pipeline metrics
	resolutionsTotal      metric.Int64Counter
	identityUpgradesTotal metric.Int64Counter
	existenceChecksTotal  metric.Int64Counter

	// Auth metrics
	authTotal         metric.Int64Counter
	tokenRefreshTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active email sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	// Backend store metrics
	m.storeRequestsTotal, err = meter.Int64Counter(
		"store_requests_total",
		metric.WithDescription("Total number of backend store requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store_requests_total counter: %w", err)
	}

	m.storeRequestDuration, err = meter.Float64Histogram(
		"store_request_duration_seconds",
		metric.WithDescription("Backend store request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store_request_duration_seconds histogram: %w", err)
	}

	// Identity pipeline metrics
	m.resolutionsTotal, err = meter.Int64Counter(
		"identity_resolutions_total",
		metric.WithDescription("Total number of email identity resolutions by identifier source"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity_resolutions_total counter: %w", err)
	}

	m.identityUpgradesTotal, err = meter.Int64Counter(
		"identity_upgrades_total",
		metric.WithDescription("Total number of asynchronous identity upgrade attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity_upgrades_total counter: %w", err)
	}

	m.existenceChecksTotal, err = meter.Int64Counter(
		"existence_checks_total",
		metric.WithDescription("Total number of existing-message checks by match path"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create existence_checks_total counter: %w", err)
	}

	// Auth metrics
	m.authTotal, err = meter.Int64Counter(
		"auth_total",
		metric.WithDescription("Total number of authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"token_refresh_total",
		metric.WithDescription("Total number of token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_refresh_total counter: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordStoreRequest records a backend store request with service, operation,
// status, and duration.
//
// Parameters:
//   - service: backend surface ("supabase", "functions", "auth")
//   - operation: Operation name (messages_by_external_id, save_message, etc.)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordStoreRequest(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.storeRequestsTotal == nil || m.storeRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.storeRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.storeRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordResolution records an identity resolution by identifier source.
// Source should be one of: "rest", "conversation", "native", "internet",
// "url_token", "synthetic", "none".
func (m *Metrics) RecordResolution(ctx context.Context, source string) {
	if m.resolutionsTotal == nil {
		return // Instrumentation not initialized
	}

	m.resolutionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrSource, source),
	))
}

// RecordIdentityUpgrade records an asynchronous identity upgrade attempt.
// Result should be one of: "applied", "stale", "unavailable", "failure".
func (m *Metrics) RecordIdentityUpgrade(ctx context.Context, result string) {
	if m.identityUpgradesTotal == nil {
		return // Instrumentation not initialized
	}

	m.identityUpgradesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordExistenceCheck records an existing-message check by match path.
// FoundBy should be one of: "primary", "secondary", "none".
func (m *Metrics) RecordExistenceCheck(ctx context.Context, foundBy string) {
	if m.existenceChecksTotal == nil {
		return // Instrumentation not initialized
	}

	m.existenceChecksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrFoundBy, foundBy),
	))
}

// RecordAuth records an authentication attempt with result.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordAuth(ctx context.Context, result string) {
	if m.authTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}

	m.authTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTokenRefresh records a token refresh attempt with result.
// Result should be one of: "success", "failure", "expired"
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m.tokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}

	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "email_resolve_identity", "notes_add")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, -1)
}

// RecordToolInvocationWithTeam records an MCP tool invocation with team info.
// This is the detailed version that includes the team when detailedLabels is enabled.
//
// Parameters:
//   - toolName: Name of the MCP tool
//   - status: Result status ("success" or "error")
//   - team: Team identifier (only included if detailedLabels is true)
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocationWithTeam(ctx context.Context, toolName, status, team string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && team != "" {
		attrs = append(attrs, attribute.String(attrTeam, team))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
