// Package server provides the MCP server context and supporting HTTP
// servers for the opsie application.
//
// # Key Components
//
// ServerContext manages backend and mail clients with lazy initialization
// and caching. It holds the Supabase store client, the edge-function AI
// client, per-account Gmail clients, and the per-account email session
// managers that drive identity resolution and existence matching.
//
// HealthChecker exposes Kubernetes-style liveness and readiness probes.
//
// MetricsServer serves Prometheus metrics on a dedicated port, isolated
// from the main MCP traffic.
package server
