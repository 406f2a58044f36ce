package notes_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/philles99/opsie/internal/tools/batch"
	"github.com/philles99/opsie/internal/instrumentation"
	"github.com/philles99/opsie/internal/server"
	"github.com/philles99/opsie/internal/tools/common"
)

// RegisterNotesTools registers note tools with the MCP server
func RegisterNotesTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// List notes tool
	listNotesTool := mcp.NewTool("notes_list",
		mcp.WithDescription("List the team's notes on an email, oldest first"),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team whose notes should be listed"),
		),
		mcp.WithString("externalId",
			mcp.Required(),
			mcp.Description("Resolved external identifier of the email"),
		),
		mcp.WithString("since",
			mcp.Description("Only return notes created after this RFC 3339 timestamp"),
		),
	)

	s.AddTool(listNotesTool, common.InstrumentedToolHandlerWithService("notes_list",
		instrumentation.ServiceSupabase, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListNotes(ctx, request, sc)
		}))

	if !readOnly {
		// Add note tool
		addNoteTool := mcp.NewTool("notes_add",
			mcp.WithDescription("Attach a note to an email for the team"),
			mcp.WithString("team_id",
				mcp.Required(),
				mcp.Description("Team the note belongs to"),
			),
			mcp.WithString("externalIds",
				mcp.Required(),
				mcp.Description("Resolved external identifier(s): a single ID or an array of IDs"),
			),
			mcp.WithString("body",
				mcp.Required(),
				mcp.Description("Note text"),
			),
		)

		s.AddTool(addNoteTool, common.InstrumentedToolHandlerWithService("notes_add",
			instrumentation.ServiceSupabase, instrumentation.OperationCreate, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleAddNote(ctx, request, sc)
			}))
	}

	return nil
}

func handleListNotes(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	teamID, ok := args["team_id"].(string)
	if !ok || teamID == "" {
		return mcp.NewToolResultError("team_id is required"), nil
	}
	externalID, ok := args["externalId"].(string)
	if !ok || externalID == "" {
		return mcp.NewToolResultError("externalId is required"), nil
	}

	var (
		notes interface{}
		err   error
	)
	if sinceVal, ok := args["since"].(string); ok && sinceVal != "" {
		since, parseErr := time.Parse(time.RFC3339, sinceVal)
		if parseErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid since timestamp: %v", parseErr)), nil
		}
		notes, err = sc.Store().ListNotesSince(ctx, teamID, externalID, since)
	} else {
		notes, err = sc.Store().ListNotes(ctx, teamID, externalID)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list notes: %v", err)), nil
	}

	out, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleAddNote(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	teamID, ok := args["team_id"].(string)
	if !ok || teamID == "" {
		return mcp.NewToolResultError("team_id is required"), nil
	}
	externalIDs, err := batch.ParseStringOrArray(args["externalIds"], "externalIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, ok := args["body"].(string)
	if !ok || body == "" {
		return mcp.NewToolResultError("body is required"), nil
	}

	userID := ""
	if session := sc.Store().CurrentSession(); session != nil {
		userID = session.User.ID
	}

	results := batch.ProcessBatch(externalIDs, func(externalID string) (string, error) {
		note, err := sc.Store().AddNote(ctx, teamID, externalID, userID, body)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Note %s added to email %s", note.ID, externalID), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}
