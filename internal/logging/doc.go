// Package logging provides structured logging utilities for the opsie application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (email and message-identifier anonymization)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithService(slog.Default(), "supabase")
//	logger.Info("existence check",
//	    logging.FoundBy("primary"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("resolved identity",
//	    logging.MessageHash(finalID))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - User emails and message identifiers are hashed to prevent PII leakage
//     while allowing correlation
//   - Tokens are never logged directly
package logging
