package cmd

import (
	"testing"

	"github.com/philles99/opsie/internal/supabase"
)

func TestLoadStoreConfig(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		anonKey      string
		functionsURL string
		wantErr      bool
		wantFns      string
	}{
		{
			name:    "complete config",
			url:     "https://example.supabase.co",
			anonKey: "anon-key",
			wantFns: "https://example.supabase.co/functions/v1",
		},
		{
			name:         "explicit functions URL",
			url:          "https://example.supabase.co",
			anonKey:      "anon-key",
			functionsURL: "https://functions.example.com/",
			wantFns:      "https://functions.example.com",
		},
		{
			name:    "trailing slash trimmed",
			url:     "https://example.supabase.co/",
			anonKey: "anon-key",
			wantFns: "https://example.supabase.co/functions/v1",
		},
		{
			name:    "missing URL",
			anonKey: "anon-key",
			wantErr: true,
		},
		{
			name:    "missing anon key",
			url:     "https://example.supabase.co",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPSIE_SUPABASE_URL", tt.url)
			t.Setenv("OPSIE_SUPABASE_ANON_KEY", tt.anonKey)
			t.Setenv("OPSIE_FUNCTIONS_URL", tt.functionsURL)

			cfg, err := loadStoreConfig()
			if tt.wantErr {
				if err == nil {
					t.Fatal("loadStoreConfig() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("loadStoreConfig() unexpected error: %v", err)
			}
			if cfg.FunctionsURL != tt.wantFns {
				t.Errorf("FunctionsURL = %q, want %q", cfg.FunctionsURL, tt.wantFns)
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if _, err := loadSession(); err == nil {
		t.Fatal("loadSession() should fail when no session file exists")
	}

	s := &supabase.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User: supabase.AuthUser{
			ID:    "user-1",
			Email: "alex@example.com",
		},
	}
	if err := saveSession(s); err != nil {
		t.Fatalf("saveSession() error: %v", err)
	}

	loaded, err := loadSession()
	if err != nil {
		t.Fatalf("loadSession() error: %v", err)
	}
	if loaded.AccessToken != s.AccessToken {
		t.Errorf("AccessToken = %q, want %q", loaded.AccessToken, s.AccessToken)
	}
	if loaded.RefreshToken != s.RefreshToken {
		t.Errorf("RefreshToken = %q, want %q", loaded.RefreshToken, s.RefreshToken)
	}
	if loaded.User.ID != s.User.ID {
		t.Errorf("User.ID = %q, want %q", loaded.User.ID, s.User.ID)
	}
}
