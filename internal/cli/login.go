package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/auth"
	"github.com/law-makers/sourcer/internal/config"
	"github.com/law-makers/sourcer/internal/source/browser"
	"github.com/law-makers/sourcer/internal/ui"
)

var (
	loginURL            string
	waitSelector        string
	loginTimeout        time.Duration
	remoteDebuggingPort int
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to 1688 in a browser window and save the session",
	Long: `Opens a visible Chrome window on the 1688 sign-in page. Once you have signed
in, the cookies are captured and saved so scrapes can run as a signed-in buyer,
which avoids most login walls and slider challenges.

On a machine without a display, use --remote-debug and drive the browser from
chrome://inspect, or use "sourcer sessions import" instead.`,
	Example: `  # Sign in and save as "buyer"; waits until the account name appears
  sourcer login --session=buyer

  # Confirm manually with Enter instead of waiting for an element
  sourcer login --session=buyer --wait=""

  # Use the saved session
  sourcer scrape https://detail.1688.com/offer/6543210987.html --session=buyer`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&sessionName, "session", "", "Session name to save (required)")
	loginCmd.Flags().StringVar(&loginURL, "url", auth.DefaultLoginURL, "Sign-in page to open")
	loginCmd.Flags().StringVar(&waitSelector, "wait", auth.LoggedInSelector, "CSS selector that appears once signed in; empty to confirm with Enter")
	loginCmd.Flags().DurationVar(&loginTimeout, "login-timeout", 5*time.Minute, "Timeout for the whole login")
	loginCmd.Flags().IntVar(&remoteDebuggingPort, "remote-debug", 0, "Enable Chrome remote debugging on this port (e.g. 9222)")
	loginCmd.MarkFlagRequired("session")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	log.Debug().Str("url", loginURL).Str("session", sessionName).Msg("Initiating login")

	fmt.Printf("\n%s\n\n", ui.Bold("Interactive Login"))
	fmt.Printf("  %s\n", ui.Label("Session", sessionName))
	fmt.Printf("  %s\n", ui.Label("URL", loginURL))
	if waitSelector != "" {
		fmt.Printf("  %s\n", ui.Label("Waiting for", waitSelector))
	}
	fmt.Printf("  %s\n", ui.Label("Timeout", loginTimeout.String()))

	session, err := auth.InteractiveLogin(auth.LoginOptions{
		SessionName:         sessionName,
		URL:                 loginURL,
		WaitSelector:        waitSelector,
		Timeout:             loginTimeout,
		ChromePath:          browser.FindChrome(cfg.ChromePath),
		RemoteDebuggingPort: remoteDebuggingPort,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := auth.SaveSessionWithManifest(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("\n%s\n", ui.Success(fmt.Sprintf("✓ Session saved with %d cookies", len(session.Cookies))))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("  %s\n", ui.Label("Expires", session.ExpiresAt.Format(time.RFC1123)))
	}
	fmt.Printf("\nUse with:\n  sourcer scrape <url> --session=%s\n\n", sessionName)
	return nil
}
