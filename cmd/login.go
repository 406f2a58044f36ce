package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/philles99/opsie/internal/google"
	"github.com/philles99/opsie/internal/supabase"
)

func newLoginCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the team workspace",
		Long: `Sign in to the team workspace with email and password.
The session is stored locally and reused by the serve, resolve and check
commands until it expires.

The password can also be supplied via the OPSIE_PASSWORD environment
variable to avoid prompting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email address")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompts if omitted)")

	return cmd
}

func runLogin(ctx context.Context, email, password string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		password = os.Getenv("OPSIE_PASSWORD")
	}
	if password == "" {
		fmt.Print("Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required")
	}

	cfg, err := loadStoreConfig()
	if err != nil {
		return err
	}
	store, err := supabase.NewClient(cfg.URL, cfg.AnonKey, supabase.WithLogger(logger))
	if err != nil {
		return err
	}

	session, err := store.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	if err := saveSession(session); err != nil {
		return err
	}

	fmt.Printf("Signed in as %s\n", session.User.Email)
	return nil
}

func newAuthGoogleCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth-google [auth-code]",
		Short: "Authorize mailbox access for a Google account",
		Long: `Authorize Opsie to read the mailbox of a Google account.

Run without arguments to print the authorization URL, then run again with
the authorization code to store the token.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Println("Visit the following URL to authorize mailbox access:")
				fmt.Println(google.GetAuthURL())
				fmt.Println()
				fmt.Println("Then run: opsie auth-google <code>")
				return nil
			}

			if err := google.SaveTokenForAccount(cmd.Context(), account, args[0]); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			fmt.Printf("Mailbox token stored for account %q\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Account name for multi-account setups")

	return cmd
}
