package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/philles99/opsie/internal/ai"
	"github.com/philles99/opsie/internal/supabase"
)

// storeConfig holds the backend endpoints read from the environment.
type storeConfig struct {
	// URL is the Supabase project base URL (OPSIE_SUPABASE_URL).
	URL string

	// AnonKey is the project's anonymous API key (OPSIE_SUPABASE_ANON_KEY).
	AnonKey string

	// FunctionsURL is the Edge Functions base URL (OPSIE_FUNCTIONS_URL).
	// Defaults to URL + "/functions/v1" when unset.
	FunctionsURL string
}

func loadStoreConfig() (storeConfig, error) {
	cfg := storeConfig{
		URL:          strings.TrimRight(os.Getenv("OPSIE_SUPABASE_URL"), "/"),
		AnonKey:      os.Getenv("OPSIE_SUPABASE_ANON_KEY"),
		FunctionsURL: strings.TrimRight(os.Getenv("OPSIE_FUNCTIONS_URL"), "/"),
	}
	if cfg.URL == "" {
		return cfg, fmt.Errorf("OPSIE_SUPABASE_URL is not set")
	}
	if cfg.AnonKey == "" {
		return cfg, fmt.Errorf("OPSIE_SUPABASE_ANON_KEY is not set")
	}
	if cfg.FunctionsURL == "" {
		cfg.FunctionsURL = cfg.URL + "/functions/v1"
	}
	return cfg, nil
}

// newStoreClient builds a Supabase client from the environment and restores
// a persisted session if one exists.
func newStoreClient(ctx context.Context, logger *slog.Logger) (*supabase.Client, error) {
	cfg, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	store, err := supabase.NewClient(cfg.URL, cfg.AnonKey, supabase.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create store client: %w", err)
	}

	if err := restoreSession(ctx, store); err != nil {
		logger.Warn("No stored session, continuing unauthenticated", "error", err)
	}

	return store, nil
}

// newAssistantClient builds an Edge Functions client that forwards the
// store's current access token on every call.
func newAssistantClient(store *supabase.Client, logger *slog.Logger) (*ai.Client, error) {
	cfg, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return ai.NewClient(cfg.FunctionsURL, cfg.AnonKey,
		ai.WithLogger(logger),
		ai.WithTokenSource(func() string {
			if s := store.CurrentSession(); s != nil {
				return s.AccessToken
			}
			return ""
		}),
	)
}

func sessionFilePath() string {
	return filepath.Join(userCacheDir(), "opsie", "supabase.session")
}

func saveSession(s *supabase.Session) error {
	path := sessionFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func loadSession() (*supabase.Session, error) {
	data, err := os.ReadFile(sessionFilePath())
	if err != nil {
		return nil, err
	}
	var s supabase.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	return &s, nil
}

// restoreSession installs a persisted session on the store and refreshes it
// when a refresh token is available. A successful refresh is persisted back.
func restoreSession(ctx context.Context, store *supabase.Client) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	store.SetSession(s)

	if s.RefreshToken == "" {
		return nil
	}
	refreshed, err := store.RefreshSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	if err := saveSession(refreshed); err != nil {
		return err
	}
	return nil
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		panic("No Windows TEMP or TMP environment variables found")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
