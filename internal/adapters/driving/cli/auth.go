package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/custodia-labs/scoresync/internal/adapters/driven/auth"
	"github.com/custodia-labs/scoresync/internal/adapters/driving/oauth"
	"github.com/custodia-labs/scoresync/internal/connectors/google"
	"github.com/custodia-labs/scoresync/internal/core/domain"
)

const loginTimeout = 5 * time.Minute

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Google Drive authorisation",
	Long: `Log in to Google Drive, check the stored token, or remove it.

The OAuth client secrets file (google.credentials_file) must be an
installed-app client downloaded from the Google Cloud console. The token is
stored in google.token_file and refreshed automatically.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorise scoresync to use Google Drive",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who is logged in",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

// Flags for auth login.
var (
	authNoBrowser bool
	authPort      int
)

func init() {
	authLoginCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false,
		"print the authorisation URL instead of opening a browser")
	authLoginCmd.Flags().IntVar(&authPort, "port", 0,
		"port for the local redirect listener (default: first free port from 8085)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(false)
	if err != nil {
		return err
	}
	provider, err := newTokenProvider(settings.Google)
	if err != nil {
		return err
	}

	state, err := oauth.GenerateState()
	if err != nil {
		return err
	}
	verifier := oauth2.GenerateVerifier()

	port := authPort
	if port == 0 {
		if port, err = oauth.FindAvailablePort(8085, 8185); err != nil {
			return err
		}
	}

	server := oauth.NewCallbackServer(state)
	if err := server.Start(port); err != nil {
		return err
	}
	defer server.Stop() //nolint:errcheck // best effort

	config := *provider.Config()
	config.RedirectURL = server.RedirectURI()
	authURL := config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier))

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()

	codes := make(chan codeResult, 2)
	go func() {
		code, err := server.Wait(ctx)
		codes <- codeResult{code, err}
	}()

	if authNoBrowser {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("--no-browser needs an interactive terminal")
		}
		cmd.Println("Open this URL in a browser and approve access:")
		cmd.Println()
		cmd.Println("  " + authURL)
		cmd.Println()
		cmd.Println("If the browser cannot reach this machine, paste the address it was redirected to:")
		go func() {
			code, err := readPastedCode(os.Stdin, state)
			codes <- codeResult{code, err}
		}()
	} else {
		cmd.Println("Opening browser for authorisation...")
		if err := oauth.OpenBrowser(authURL); err != nil {
			cmd.Printf("Could not open a browser (%v). Open this URL instead:\n  %s\n", err, authURL)
		}
	}

	res := <-codes
	if res.err != nil {
		return fmt.Errorf("authorisation: %w", res.err)
	}

	token, err := config.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("exchange authorisation code: %w", err)
	}
	if err := provider.Save(token); err != nil {
		return err
	}

	if info, err := google.GetUserInfo(ctx, token.AccessToken); err == nil {
		cmd.Printf("Logged in as %s.\n", info.Email)
	} else {
		cmd.Println("Logged in.")
	}
	cmd.Printf("Token saved to %s\n", provider.Path())
	return nil
}

type codeResult struct {
	code string
	err  error
}

// readPastedCode reads one line holding either a bare code or the full
// redirect address, and returns the authorisation code.
func readPastedCode(r io.Reader, state string) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read code: %w", err)
	}
	return extractCode(strings.TrimSpace(line), state)
}

func extractCode(input, state string) (string, error) {
	if input == "" {
		return "", oauth.ErrNoCode
	}
	if !strings.Contains(input, "://") && !strings.Contains(input, "?") {
		return input, nil
	}

	raw := input
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[i+1:]
	}
	query, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("parse redirect address: %w", err)
	}
	if msg := query.Get("error"); msg != "" {
		return "", fmt.Errorf("authorization denied: %s", msg)
	}
	if query.Get("state") != state {
		return "", oauth.ErrStateMismatch
	}
	if query.Get("code") == "" {
		return "", oauth.ErrNoCode
	}
	return query.Get("code"), nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(false)
	if err != nil {
		return err
	}
	provider, err := newTokenProvider(settings.Google)
	if err != nil {
		return err
	}

	if !provider.IsAuthenticated() {
		cmd.Println("Not logged in. Run 'scoresync auth login'.")
		return nil
	}

	token, err := provider.Token(cmd.Context())
	if errors.Is(err, domain.ErrAuthRequired) {
		cmd.Printf("Stored token is no longer valid (%v). Run 'scoresync auth login'.\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	info, err := google.GetUserInfo(cmd.Context(), token.AccessToken)
	if err != nil {
		return err
	}
	cmd.Printf("Logged in as %s", info.Email)
	if info.Name != "" {
		cmd.Printf(" (%s)", info.Name)
	}
	cmd.Println()
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(false)
	if err != nil {
		return err
	}
	provider := auth.NewTokenFile(settings.Google.TokenFile, nil)

	if err := provider.Delete(); err != nil {
		return err
	}
	cmd.Printf("Removed %s\n", provider.Path())
	return nil
}
