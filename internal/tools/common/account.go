package common

import "context"

// GetAccountFromArgs extracts the mail account name from request arguments.
// Defaults to "default" when the caller does not name one.
func GetAccountFromArgs(_ context.Context, args map[string]interface{}) string {
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		return accountVal
	}
	return "default"
}

// GetTeamFromArgs extracts the team identifier from request arguments.
// Returns the empty string when the caller is not operating in a team scope.
func GetTeamFromArgs(args map[string]interface{}) string {
	if teamVal, ok := args["team_id"].(string); ok {
		return teamVal
	}
	return ""
}
