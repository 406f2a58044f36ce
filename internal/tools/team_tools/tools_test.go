package team_tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/philles99/opsie/internal/server"
	"github.com/philles99/opsie/internal/supabase"
)

func newTestContext(t *testing.T, signedIn bool, handler http.HandlerFunc) *server.ServerContext {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := supabase.NewClient(srv.URL, "test-anon-key")
	if err != nil {
		t.Fatalf("failed to create store client: %v", err)
	}
	if signedIn {
		store.SetSession(&supabase.Session{
			AccessToken: "token",
			User:        supabase.AuthUser{ID: "user-1", Email: "user@example.com"},
		})
	}

	sc, err := server.NewServerContext(context.Background(), store, nil, slog.Default())
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	if result == nil || len(result.Content) == 0 {
		t.Fatal("expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestRegisterTeamTools(t *testing.T) {
	sc := newTestContext(t, true, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})
	mcpSrv := mcpserver.NewMCPServer("test", "0.0.1")

	for _, readOnly := range []bool{false, true} {
		if err := RegisterTeamTools(mcpSrv, sc, readOnly); err != nil {
			t.Errorf("RegisterTeamTools(readOnly=%v) error = %v", readOnly, err)
		}
	}
}

func TestHandleTeamInfoNotSignedIn(t *testing.T) {
	sc := newTestContext(t, false, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a session")
	})

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "team_info"},
	}

	result, err := handleTeamInfo(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleTeamInfo() unexpected error = %v", err)
	}
	if !result.IsError {
		t.Error("expected error result when not signed in")
	}
	if !strings.Contains(resultText(t, result), "opsie login") {
		t.Errorf("expected login hint, got %q", resultText(t, result))
	}
}

func TestHandleTeamInfo(t *testing.T) {
	sc := newTestContext(t, true, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "team_members"):
			_, _ = w.Write([]byte(`[{"team_id":"team-1","user_id":"user-1","role":"owner"}]`))
		case strings.Contains(r.URL.Path, "teams"):
			_, _ = w.Write([]byte(`[{"id":"team-1","name":"Support","invite_code":"abc123"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "team_info"},
	}

	result, err := handleTeamInfo(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleTeamInfo() unexpected error = %v", err)
	}
	if result.IsError {
		t.Fatalf("handleTeamInfo() returned error result: %s", resultText(t, result))
	}

	var team supabase.Team
	if err := json.Unmarshal([]byte(resultText(t, result)), &team); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if team.ID != "team-1" || team.Name != "Support" {
		t.Errorf("unexpected team: %+v", team)
	}
}

func TestHandleTeamMembers(t *testing.T) {
	sc := newTestContext(t, true, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "team_members"):
			_, _ = w.Write([]byte(`[{"team_id":"team-1","user_id":"user-1","role":"owner"},{"team_id":"team-1","user_id":"user-2","role":"member"}]`))
		case strings.Contains(r.URL.Path, "profiles"):
			_, _ = w.Write([]byte(`[{"id":"user-1","first_name":"Dana","last_name":"Reyes","email":"dana@example.com"},{"id":"user-2","email":"sam@example.com"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "team_members",
			Arguments: map[string]interface{}{"team_id": "team-1"},
		},
	}

	result, err := handleTeamMembers(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleTeamMembers() unexpected error = %v", err)
	}
	if result.IsError {
		t.Fatalf("handleTeamMembers() returned error result: %s", resultText(t, result))
	}

	var members []supabase.Member
	if err := json.Unmarshal([]byte(resultText(t, result)), &members); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].Profile.Email != "dana@example.com" {
		t.Errorf("unexpected first member profile: %+v", members[0].Profile)
	}
}

func TestHandleTeamCreateValidation(t *testing.T) {
	sc := newTestContext(t, true, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid args")
	})

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "team_create",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := handleTeamCreate(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleTeamCreate() unexpected error = %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for missing name")
	}
}

func TestHandleTeamJoin(t *testing.T) {
	sc := newTestContext(t, true, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "team_members"):
			if r.Method != http.MethodPost {
				t.Errorf("membership insert method = %s, want POST", r.Method)
			}
			_, _ = w.Write([]byte(`[{"team_id":"team-1","user_id":"user-1","role":"member"}]`))
		case strings.Contains(r.URL.Path, "teams"):
			if got := r.URL.Query().Get("invite_code"); got != "eq.abc123" {
				t.Errorf("invite_code filter = %q, want %q", got, "eq.abc123")
			}
			_, _ = w.Write([]byte(`[{"id":"team-1","name":"Support","invite_code":"abc123"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "team_join",
			Arguments: map[string]interface{}{"inviteCode": "abc123"},
		},
	}

	result, err := handleTeamJoin(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleTeamJoin() unexpected error = %v", err)
	}
	if result.IsError {
		t.Fatalf("handleTeamJoin() returned error result: %s", resultText(t, result))
	}

	var team supabase.Team
	if err := json.Unmarshal([]byte(resultText(t, result)), &team); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if team.ID != "team-1" {
		t.Errorf("team ID = %q, want %q", team.ID, "team-1")
	}
}
