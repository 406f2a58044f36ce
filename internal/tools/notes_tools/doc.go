// Package notes_tools provides MCP tools for team notes attached to emails.
package notes_tools
