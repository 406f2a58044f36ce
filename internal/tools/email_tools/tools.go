package email_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/philles99/opsie/internal/gmail"
	"github.com/philles99/opsie/internal/google"
	"github.com/philles99/opsie/internal/identity"
	"github.com/philles99/opsie/internal/instrumentation"
	"github.com/philles99/opsie/internal/server"
	"github.com/philles99/opsie/internal/supabase"
	"github.com/philles99/opsie/internal/tools/batch"
	"github.com/philles99/opsie/internal/tools/common"
)

// getAccountFromArgs extracts the account name from request arguments, defaulting to "default"
func getAccountFromArgs(args map[string]interface{}) string {
	account := "default"
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		account = accountVal
	}
	return account
}

// gmailClientForRequest returns the account's Gmail client, or an error
// result explaining how to authenticate when no token exists.
func gmailClientForRequest(ctx context.Context, sc *server.ServerContext, args map[string]interface{}) (*gmail.Client, *mcp.CallToolResult) {
	account := getAccountFromArgs(args)

	client := sc.GmailClientForAccount(account)
	if client != nil {
		return client, nil
	}

	if !gmail.HasTokenForAccount(account) {
		return nil, mcp.NewToolResultError(google.GetAuthenticationErrorMessage(account))
	}

	client, err := gmail.NewClientForAccount(ctx, account)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to create Gmail client for account %s: %v", account, err))
	}
	sc.SetGmailClientForAccount(account, client)
	return client, nil
}

// resolutionSource labels which identifier source won the resolution.
func resolutionSource(id identity.EmailIdentity) string {
	switch {
	case id.FinalID == "":
		return instrumentation.SourceNone
	case id.ExtractedURLFormatID != "" && id.FinalID == id.ExtractedURLFormatID:
		return instrumentation.SourceURLToken
	case id.SyntheticID != "" && id.FinalID == id.SyntheticID:
		return instrumentation.SourceSynthetic
	case id.RestID != "":
		return instrumentation.SourceRest
	case id.ConversationID != "":
		return instrumentation.SourceConversation
	case id.RawItemID != "":
		return instrumentation.SourceNative
	default:
		return instrumentation.SourceInternet
	}
}

// identityReport is the JSON shape returned by email_resolve_identity.
type identityReport struct {
	FinalID           string `json:"finalId"`
	Source            string `json:"source"`
	RestID            string `json:"restId,omitempty"`
	ConversationID    string `json:"conversationId,omitempty"`
	InternetMessageID string `json:"internetMessageId,omitempty"`
	URLFormatID       string `json:"urlFormatId,omitempty"`
	SyntheticID       string `json:"syntheticId,omitempty"`
	Identifiable      bool   `json:"identifiable"`
	UpgradePending    bool   `json:"upgradePending"`
}

func reportForIdentity(id identity.EmailIdentity, upgradePending bool) identityReport {
	return identityReport{
		FinalID:           id.FinalID,
		Source:            resolutionSource(id),
		RestID:            id.RestID,
		ConversationID:    id.ConversationID,
		InternetMessageID: id.InternetMessageID,
		URLFormatID:       id.ExtractedURLFormatID,
		SyntheticID:       id.SyntheticID,
		Identifiable:      id.Identifiable(),
		UpgradePending:    upgradePending,
	}
}

// matchReport is the JSON shape returned for existence checks.
type matchReport struct {
	Exists        bool                    `json:"exists"`
	FoundBy       string                  `json:"foundBy"`
	Record        *identity.StoredMessage `json:"record,omitempty"`
	MatchedUser   *identity.User          `json:"matchedUser,omitempty"`
	HandledByUser *identity.User          `json:"handledByUser,omitempty"`
}

func reportForMatch(m identity.Match) matchReport {
	return matchReport{
		Exists:        m.Exists,
		FoundBy:       string(m.FoundBy),
		Record:        m.Record,
		MatchedUser:   m.MatchedUser,
		HandledByUser: m.HandledByUser,
	}
}

// RegisterEmailTools registers all email identity and session tools with the MCP server
func RegisterEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// Resolve identity tool
	resolveIdentityTool := mcp.NewTool("email_resolve_identity",
		mcp.WithDescription("Resolve the stable identifier for an email message"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple mail accounts."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The client-native ID of the message"),
		),
		mcp.WithString("pageUrl",
			mcp.Description("URL the mail client is currently displaying, if any"),
		),
	)

	s.AddTool(resolveIdentityTool, common.InstrumentedToolHandler("email_resolve_identity", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleResolveIdentity(ctx, request, sc)
		}))

	// Check existing tool
	checkExistingTool := mcp.NewTool("email_check_existing",
		mcp.WithDescription("Check whether a teammate already saved or handled this email"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple mail accounts."),
		),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team whose store should be checked"),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The client-native ID of the message"),
		),
	)

	s.AddTool(checkExistingTool, common.InstrumentedToolHandlerWithService("email_check_existing",
		instrumentation.ServiceSupabase, instrumentation.OperationCheck, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCheckExisting(ctx, request, sc)
		}))

	// Open email session tool
	openTool := mcp.NewTool("email_open",
		mcp.WithDescription("Open an email as the active session: resolve identity, check the team store, and load notes"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple mail accounts."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The client-native ID of the message"),
		),
		mcp.WithString("team_id",
			mcp.Description("Team scope. Without it no store lookups are made."),
		),
	)

	s.AddTool(openTool, common.InstrumentedToolHandler("email_open", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleOpen(ctx, request, sc)
		}))

	// Active session tool
	activeTool := mcp.NewTool("email_active",
		mcp.WithDescription("Return the state of the currently open email session"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple mail accounts."),
		),
	)

	s.AddTool(activeTool, common.InstrumentedToolHandler("email_active", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleActive(ctx, request, sc)
		}))

	// Close session tool
	closeTool := mcp.NewTool("email_close",
		mcp.WithDescription("Close the active email session"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple mail accounts."),
		),
	)

	s.AddTool(closeTool, common.InstrumentedToolHandler("email_close", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClose(ctx, request, sc)
		}))

	if !readOnly {
		// Save email tool
		saveTool := mcp.NewTool("email_save",
			mcp.WithDescription("Save the email to the team store under its resolved identifier"),
			mcp.WithString("account",
				mcp.Description("Account name (default: 'default'). Used to manage multiple mail accounts."),
			),
			mcp.WithString("team_id",
				mcp.Required(),
				mcp.Description("Team to save the email for"),
			),
			mcp.WithString("messageId",
				mcp.Required(),
				mcp.Description("The client-native ID of the message"),
			),
			mcp.WithString("summary",
				mcp.Description("Optional summary text to store with the email"),
			),
			mcp.WithNumber("urgency",
				mcp.Description("Optional urgency score from 0 (low) to 10 (high)"),
			),
		)

		s.AddTool(saveTool, common.InstrumentedToolHandlerWithService("email_save",
			instrumentation.ServiceSupabase, instrumentation.OperationCreate, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleSave(ctx, request, sc)
			}))

		// Mark handled tool (supports single or multiple rows)
		markHandledTool := mcp.NewTool("email_mark_handled",
			mcp.WithDescription("Mark one or more saved emails as handled"),
			mcp.WithString("messageIds",
				mcp.Required(),
				mcp.Description("Store row ID (string) or array of row IDs to mark handled"),
			),
			mcp.WithString("note",
				mcp.Description("Optional handling note visible to the team"),
			),
		)

		s.AddTool(markHandledTool, common.InstrumentedToolHandlerWithService("email_mark_handled",
			instrumentation.ServiceSupabase, instrumentation.OperationUpdate, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleMarkHandled(ctx, request, sc)
			}))
	}

	return nil
}

func handleResolveIdentity(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	client, errResult := gmailClientForRequest(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	item, err := client.MailItem(ctx, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load message %s: %v", messageID, err)), nil
	}
	if pageURL, ok := args["pageUrl"].(string); ok {
		item.PageURL = pageURL
	}

	resolver := identity.NewResolver(client, sc.Logger())
	res := resolver.Resolve(ctx, *item)

	// The upgrade channel is only meaningful inside a session; here we just
	// report whether one may still arrive.
	upgradePending := false
	select {
	case upgraded, open := <-res.Upgrade:
		if open {
			res.Identity.ApplyUpgrade(upgraded)
		}
	default:
		upgradePending = true
	}

	if metrics := sc.Metrics(); metrics != nil {
		metrics.RecordResolution(ctx, resolutionSource(res.Identity))
	}

	out, err := json.MarshalIndent(reportForIdentity(res.Identity, upgradePending), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleCheckExisting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	teamID, ok := args["team_id"].(string)
	if !ok || teamID == "" {
		return mcp.NewToolResultError("team_id is required"), nil
	}
	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	client, errResult := gmailClientForRequest(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	item, err := client.MailItem(ctx, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load message %s: %v", messageID, err)), nil
	}

	resolver := identity.NewResolver(client, sc.Logger())
	res := resolver.Resolve(ctx, *item)

	match := sc.Matcher().FindExisting(ctx, identity.Lookup{
		FinalID:     res.Identity.FinalID,
		SenderEmail: item.SenderEmail,
		Timestamp:   item.Timestamp,
		TeamID:      teamID,
	})

	if metrics := sc.Metrics(); metrics != nil {
		metrics.RecordExistenceCheck(ctx, string(match.FoundBy))
	}

	out, err := json.MarshalIndent(reportForMatch(match), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleOpen(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := getAccountFromArgs(args)

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}
	teamID, _ := args["team_id"].(string)

	client, errResult := gmailClientForRequest(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	item, err := client.MailItem(ctx, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load message %s: %v", messageID, err)), nil
	}

	mgr := sc.SessionManagerForAccount(account)
	if mgr == nil {
		return mcp.NewToolResultError(google.GetAuthenticationErrorMessage(account)), nil
	}

	state, err := mgr.Open(ctx, item, teamID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open email: %v", err)), nil
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"identity": reportForIdentity(state.Identity, false),
		"match":    reportForMatch(state.Match),
		"notes":    state.Notes,
		"teamId":   state.TeamID,
		"openedAt": state.OpenedAt,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleActive(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := getAccountFromArgs(args)

	mgr := sc.SessionManagerForAccount(account)
	if mgr == nil {
		return mcp.NewToolResultError(google.GetAuthenticationErrorMessage(account)), nil
	}

	state, ok := mgr.Current()
	if !ok {
		return mcp.NewToolResultText("No email session is open"), nil
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"identity": reportForIdentity(state.Identity, false),
		"match":    reportForMatch(state.Match),
		"notes":    state.Notes,
		"teamId":   state.TeamID,
		"openedAt": state.OpenedAt,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleClose(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := getAccountFromArgs(args)

	mgr := sc.SessionManagerForAccount(account)
	if mgr == nil {
		return mcp.NewToolResultError(google.GetAuthenticationErrorMessage(account)), nil
	}

	mgr.Close()
	return mcp.NewToolResultText("Email session closed"), nil
}

func handleSave(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	teamID, ok := args["team_id"].(string)
	if !ok || teamID == "" {
		return mcp.NewToolResultError("team_id is required"), nil
	}
	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}
	urgency, hasUrgency := args["urgency"].(float64)
	if hasUrgency && (urgency < 0 || urgency > 10) {
		return mcp.NewToolResultError("urgency must be between 0 and 10"), nil
	}

	client, errResult := gmailClientForRequest(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	item, err := client.MailItem(ctx, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load message %s: %v", messageID, err)), nil
	}

	resolver := identity.NewResolver(client, sc.Logger())
	res := resolver.Resolve(ctx, *item)

	msg := supabase.Message{
		ExternalMessageID: res.Identity.FinalID,
		TeamID:            teamID,
		Subject:           item.Subject,
		SenderEmail:       item.SenderEmail,
		Timestamp:         item.Timestamp,
	}
	if session := sc.Store().CurrentSession(); session != nil {
		msg.UserID = session.User.ID
	}
	if summary, ok := args["summary"].(string); ok {
		msg.Summary = summary
	}
	if hasUrgency {
		msg.Urgency = int(urgency)
	}

	saved, err := sc.Store().SaveMessage(ctx, msg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save email: %v", err)), nil
	}

	out, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleMarkHandled(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageIDs, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, _ := args["note"].(string)

	userID := ""
	if session := sc.Store().CurrentSession(); session != nil {
		userID = session.User.ID
	}

	results := batch.ProcessBatch(messageIDs, func(messageID string) (string, error) {
		if _, err := sc.Store().MarkHandled(ctx, messageID, userID, note); err != nil {
			return "", err
		}
		return fmt.Sprintf("Email %s marked handled", messageID), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}
