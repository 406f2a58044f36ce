// Package cmd implements the opsie command-line interface.
//
// The root command wires up the subcommands:
//
//   - serve: run the MCP server over stdio or streamable HTTP
//   - login: sign in to the team workspace
//   - auth-google: authorize mailbox access for a Google account
//   - resolve: resolve a stable identifier for an email
//   - check: look an email up in the team workspace
//   - generate-docs: generate the MCP tool reference
//
// Backend endpoints are read from the OPSIE_SUPABASE_URL,
// OPSIE_SUPABASE_ANON_KEY and OPSIE_FUNCTIONS_URL environment variables.
// The signed-in session is persisted under the user cache directory and
// reused across commands.
package cmd
