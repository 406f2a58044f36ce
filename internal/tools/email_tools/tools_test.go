package email_tools

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/philles99/opsie/internal/identity"
	"github.com/philles99/opsie/internal/instrumentation"
	"github.com/philles99/opsie/internal/server"
	"github.com/philles99/opsie/internal/supabase"
)

func TestGetAccountFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		expected string
	}{
		{
			name:     "missing account defaults",
			args:     map[string]interface{}{},
			expected: "default",
		},
		{
			name:     "explicit account",
			args:     map[string]interface{}{"account": "work"},
			expected: "work",
		},
		{
			name:     "empty account defaults",
			args:     map[string]interface{}{"account": ""},
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getAccountFromArgs(tt.args); got != tt.expected {
				t.Errorf("getAccountFromArgs() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResolutionSource(t *testing.T) {
	tests := []struct {
		name string
		id   identity.EmailIdentity
		want string
	}{
		{
			name: "unidentifiable",
			id:   identity.EmailIdentity{},
			want: instrumentation.SourceNone,
		},
		{
			name: "url token wins",
			id: identity.EmailIdentity{
				RestID:               "rest-id",
				ExtractedURLFormatID: "AAkALtoken",
				FinalID:              "AAkALtoken",
			},
			want: instrumentation.SourceURLToken,
		},
		{
			name: "rest id",
			id: identity.EmailIdentity{
				RestID:  "rest-id",
				FinalID: "rest-id",
			},
			want: instrumentation.SourceRest,
		},
		{
			name: "conversation id",
			id: identity.EmailIdentity{
				ConversationID: "conv-1",
				FinalID:        "conv-1",
			},
			want: instrumentation.SourceConversation,
		},
		{
			name: "native id",
			id: identity.EmailIdentity{
				RawItemID: "item-1",
				FinalID:   "item-1",
			},
			want: instrumentation.SourceNative,
		},
		{
			name: "internet message id",
			id: identity.EmailIdentity{
				InternetMessageID: "<x@mail.example.com>",
				FinalID:           "<x@mail.example.com>",
			},
			want: instrumentation.SourceInternet,
		},
		{
			name: "synthetic fallback",
			id: identity.EmailIdentity{
				SyntheticID: "generated-YWJj",
				FinalID:     "generated-YWJj",
			},
			want: instrumentation.SourceSynthetic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolutionSource(tt.id); got != tt.want {
				t.Errorf("resolutionSource() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReportForIdentity(t *testing.T) {
	id := identity.EmailIdentity{
		RawItemID:      "item-1",
		ConversationID: "conv-1",
		FinalID:        "conv-1",
	}

	report := reportForIdentity(id, true)

	if report.FinalID != "conv-1" {
		t.Errorf("FinalID = %q, want %q", report.FinalID, "conv-1")
	}
	if report.Source != instrumentation.SourceConversation {
		t.Errorf("Source = %q, want %q", report.Source, instrumentation.SourceConversation)
	}
	if !report.Identifiable {
		t.Error("expected report to be identifiable")
	}
	if !report.UpgradePending {
		t.Error("expected upgrade to be pending")
	}
}

func TestReportForMatch(t *testing.T) {
	record := &identity.StoredMessage{ID: "row-1", ExternalID: "ext-1"}
	user := &identity.User{Name: "Dana Reyes", Email: "dana@example.com"}

	report := reportForMatch(identity.Match{
		Exists:      true,
		FoundBy:     identity.FoundBySecondary,
		Record:      record,
		MatchedUser: user,
	})

	if !report.Exists {
		t.Error("expected Exists to be true")
	}
	if report.FoundBy != "secondary" {
		t.Errorf("FoundBy = %q, want %q", report.FoundBy, "secondary")
	}
	if report.Record != record {
		t.Error("expected record to be passed through")
	}
	if report.MatchedUser != user {
		t.Error("expected matched user to be passed through")
	}
}

func TestReportForMatch_NoMatch(t *testing.T) {
	report := reportForMatch(identity.Match{FoundBy: identity.FoundByNone})

	if report.Exists {
		t.Error("expected Exists to be false")
	}
	if report.FoundBy != "none" {
		t.Errorf("FoundBy = %q, want %q", report.FoundBy, "none")
	}
	if report.Record != nil {
		t.Error("expected no record")
	}
}

func TestHandleSaveRejectsOutOfRangeUrgency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend call %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	store, err := supabase.NewClient(srv.URL, "test-anon-key")
	if err != nil {
		t.Fatalf("failed to create store client: %v", err)
	}
	sc, err := server.NewServerContext(context.Background(), store, nil, slog.Default())
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	tests := []struct {
		name    string
		urgency float64
	}{
		{name: "above range", urgency: 11},
		{name: "below range", urgency: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := mcp.CallToolRequest{
				Params: mcp.CallToolParams{
					Name: "email_save",
					Arguments: map[string]interface{}{
						"team_id":   "team-1",
						"messageId": "native-1",
						"urgency":   tt.urgency,
					},
				},
			}
			result, err := handleSave(context.Background(), request, sc)
			if err != nil {
				t.Fatalf("handleSave returned error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected an error result for out-of-range urgency")
			}
			text, ok := result.Content[0].(mcp.TextContent)
			if !ok {
				t.Fatalf("expected text content, got %T", result.Content[0])
			}
			if !strings.Contains(text.Text, "urgency must be between 0 and 10") {
				t.Errorf("error text = %q, want urgency range message", text.Text)
			}
		})
	}
}
