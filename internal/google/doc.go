// Package google provides OAuth2 authentication and token management for
// Google APIs.
//
// Tokens are stored per account under the user cache directory
// (~/.cache/opsie on Linux). The TokenProvider interface allows other token
// sources to be plugged in; the file-based provider serves the CLI and the
// STDIO transport.
package google
