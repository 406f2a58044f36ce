// Package team_tools provides MCP tools for team membership and lifecycle.
package team_tools
