package email_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/philles99/opsie/internal/ai"
	"github.com/philles99/opsie/internal/gmail"
	"github.com/philles99/opsie/internal/instrumentation"
	"github.com/philles99/opsie/internal/server"
	"github.com/philles99/opsie/internal/tools/common"
)

// RegisterAssistTools registers AI-assisted email tools with the MCP server.
// These tools require an edge-function client; when none is configured the
// registration is skipped.
func RegisterAssistTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc.Assistant() == nil {
		return nil
	}

	// Summarize tool
	summarizeTool := mcp.NewTool("email_summarize",
		mcp.WithDescription("Summarize an email into key points with an urgency score"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple mail accounts."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The client-native ID of the message"),
		),
	)

	s.AddTool(summarizeTool, common.InstrumentedToolHandlerWithService("email_summarize",
		instrumentation.ServiceFunctions, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSummarize(ctx, request, sc)
		}))

	// Draft reply tool
	draftReplyTool := mcp.NewTool("email_draft_reply",
		mcp.WithDescription("Draft a reply to an email in a requested tone"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple mail accounts."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The client-native ID of the message"),
		),
		mcp.WithString("tone",
			mcp.Description("Reply tone (default: 'professional')"),
		),
		mcp.WithString("instructions",
			mcp.Description("Extra instructions for the draft"),
		),
	)

	s.AddTool(draftReplyTool, common.InstrumentedToolHandlerWithService("email_draft_reply",
		instrumentation.ServiceFunctions, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDraftReply(ctx, request, sc)
		}))

	if !readOnly {
		// Send reply tool
		sendReplyTool := mcp.NewTool("email_send_reply",
			mcp.WithDescription("Send a reply to an email from the owner's mailbox"),
			mcp.WithString("account",
				mcp.Description("Account name (default: 'default'). Used to manage multiple mail accounts."),
			),
			mcp.WithString("messageId",
				mcp.Required(),
				mcp.Description("The client-native ID of the message being replied to"),
			),
			mcp.WithString("body",
				mcp.Required(),
				mcp.Description("Reply body text"),
			),
		)

		s.AddTool(sendReplyTool, common.InstrumentedToolHandler("email_send_reply", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleSendReply(ctx, request, sc)
			}))
	}

	return nil
}

// emailInputForMessage loads the message and reduces it to the fields the
// edge functions read.
func emailInputForMessage(ctx context.Context, client *gmail.Client, messageID string) (*ai.EmailInput, error) {
	msg, err := client.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return &ai.EmailInput{
		Subject: gmail.HeaderValue(msg, "Subject"),
		Body:    gmail.MessageBody(msg),
		Sender:  gmail.SenderAddress(gmail.HeaderValue(msg, "From")),
	}, nil
}

func handleSummarize(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	client, errResult := gmailClientForRequest(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	input, err := emailInputForMessage(ctx, client, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load message %s: %v", messageID, err)), nil
	}

	summary, err := sc.Assistant().Summarize(ctx, *input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to summarize email: %v", err)), nil
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleDraftReply(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	client, errResult := gmailClientForRequest(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	input, err := emailInputForMessage(ctx, client, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load message %s: %v", messageID, err)), nil
	}

	req := ai.DraftRequest{Email: *input}
	if tone, ok := args["tone"].(string); ok {
		req.Tone = tone
	}
	if instructions, ok := args["instructions"].(string); ok {
		req.Instructions = instructions
	}

	draft, err := sc.Assistant().DraftReply(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to draft reply: %v", err)), nil
	}

	out, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleSendReply(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}
	body, ok := args["body"].(string)
	if !ok || body == "" {
		return mcp.NewToolResultError("body is required"), nil
	}

	client, errResult := gmailClientForRequest(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	sentID, err := client.SendReply(ctx, messageID, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send reply: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Reply sent (message ID: %s)", sentID)), nil
}
