package team_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/philles99/opsie/internal/instrumentation"
	"github.com/philles99/opsie/internal/server"
	"github.com/philles99/opsie/internal/tools/common"
)

// currentUserID returns the signed-in user's ID, or an error result when no
// auth session is active. Team operations always act as the signed-in user.
func currentUserID(sc *server.ServerContext) (string, *mcp.CallToolResult) {
	if session := sc.Store().CurrentSession(); session != nil && session.User.ID != "" {
		return session.User.ID, nil
	}
	return "", mcp.NewToolResultError("Not signed in. Run 'opsie login' first.")
}

// RegisterTeamTools registers team tools with the MCP server
func RegisterTeamTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// Team info tool
	teamInfoTool := mcp.NewTool("team_info",
		mcp.WithDescription("Show the signed-in user's team"),
	)

	s.AddTool(teamInfoTool, common.InstrumentedToolHandlerWithService("team_info",
		instrumentation.ServiceSupabase, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTeamInfo(ctx, request, sc)
		}))

	// Team members tool
	teamMembersTool := mcp.NewTool("team_members",
		mcp.WithDescription("List the members of a team with their profiles"),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team to list members for"),
		),
	)

	s.AddTool(teamMembersTool, common.InstrumentedToolHandlerWithService("team_members",
		instrumentation.ServiceSupabase, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTeamMembers(ctx, request, sc)
		}))

	if !readOnly {
		// Create team tool
		createTeamTool := mcp.NewTool("team_create",
			mcp.WithDescription("Create a team owned by the signed-in user"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Team name"),
			),
		)

		s.AddTool(createTeamTool, common.InstrumentedToolHandlerWithService("team_create",
			instrumentation.ServiceSupabase, instrumentation.OperationCreate, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleTeamCreate(ctx, request, sc)
			}))

		// Join team tool
		joinTeamTool := mcp.NewTool("team_join",
			mcp.WithDescription("Join a team using its invite code"),
			mcp.WithString("inviteCode",
				mcp.Required(),
				mcp.Description("Invite code shared by the team owner"),
			),
		)

		s.AddTool(joinTeamTool, common.InstrumentedToolHandlerWithService("team_join",
			instrumentation.ServiceSupabase, instrumentation.OperationCreate, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleTeamJoin(ctx, request, sc)
			}))

		// Leave team tool
		leaveTeamTool := mcp.NewTool("team_leave",
			mcp.WithDescription("Leave a team"),
			mcp.WithString("team_id",
				mcp.Required(),
				mcp.Description("Team to leave"),
			),
		)

		s.AddTool(leaveTeamTool, common.InstrumentedToolHandlerWithService("team_leave",
			instrumentation.ServiceSupabase, instrumentation.OperationDelete, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleTeamLeave(ctx, request, sc)
			}))
	}

	return nil
}

func handleTeamInfo(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	userID, errResult := currentUserID(sc)
	if errResult != nil {
		return errResult, nil
	}

	team, err := sc.Store().TeamForUser(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to look up team: %v", err)), nil
	}
	if team == nil {
		return mcp.NewToolResultText("You are not a member of any team"), nil
	}

	out, err := json.MarshalIndent(team, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleTeamMembers(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	teamID, ok := args["team_id"].(string)
	if !ok || teamID == "" {
		return mcp.NewToolResultError("team_id is required"), nil
	}

	members, err := sc.Store().TeamMembers(ctx, teamID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list members: %v", err)), nil
	}

	out, err := json.MarshalIndent(members, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleTeamCreate(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	userID, errResult := currentUserID(sc)
	if errResult != nil {
		return errResult, nil
	}

	team, err := sc.Store().CreateTeam(ctx, name, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create team: %v", err)), nil
	}

	out, err := json.MarshalIndent(team, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleTeamJoin(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	inviteCode, ok := args["inviteCode"].(string)
	if !ok || inviteCode == "" {
		return mcp.NewToolResultError("inviteCode is required"), nil
	}

	userID, errResult := currentUserID(sc)
	if errResult != nil {
		return errResult, nil
	}

	team, err := sc.Store().JoinTeam(ctx, inviteCode, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to join team: %v", err)), nil
	}

	out, err := json.MarshalIndent(team, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleTeamLeave(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	teamID, ok := args["team_id"].(string)
	if !ok || teamID == "" {
		return mcp.NewToolResultError("team_id is required"), nil
	}

	userID, errResult := currentUserID(sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := sc.Store().LeaveTeam(ctx, teamID, userID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to leave team: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Left team %s", teamID)), nil
}
