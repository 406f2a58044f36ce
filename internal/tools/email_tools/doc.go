// Package email_tools provides MCP tools for working with the active email:
// identity resolution, duplicate detection against the team store, session
// open/close, and handled-state updates.
package email_tools
