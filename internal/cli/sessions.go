package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/auth"
	"github.com/law-makers/sourcer/internal/ui"
)

var assumeYes bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved 1688 login sessions",
	Long: `List, view, and delete saved login sessions.

Sessions hold the cookies of a signed-in 1688 buyer account. They are stored in
the OS keyring, or under ~/.sourcer/sessions when no keyring is available, and
are sent with page requests when --session is given.`,
	Example: `  # List all saved sessions
  sourcer sessions list

  # View details of a specific session
  sourcer sessions view buyer

  # Delete a session without confirmation
  sourcer sessions delete old-buyer --yes`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsViewCmd = &cobra.Command{
	Use:   "view <session-name>",
	Short: "View details of a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsView,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-name>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsViewCmd, sessionsDeleteCmd)

	sessionsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without asking for confirmation")
}

// expiryText describes when a session expires relative to now
func expiryText(s *auth.SessionData, now time.Time) string {
	switch {
	case s.ExpiresAt.IsZero():
		return "no expiry"
	case now.After(s.ExpiresAt):
		return ui.Warn(fmt.Sprintf("expired %s ago", now.Sub(s.ExpiresAt).Round(time.Minute)))
	default:
		return fmt.Sprintf("%s (in %s)", s.ExpiresAt.Format(time.RFC1123), s.ExpiresAt.Sub(now).Round(time.Minute))
	}
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	names, err := auth.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "\nNo saved sessions found.")
		fmt.Fprintln(out, "\nCreate one with:")
		fmt.Fprintln(out, "  sourcer login --session=<name>")
		fmt.Fprintln(out, "  sourcer sessions import <name> --file=cookies.json")
		fmt.Fprintln(out)
		return nil
	}

	sort.Strings(names)
	fmt.Fprintf(out, "\n%s\n\n", ui.Bold(fmt.Sprintf("Saved Sessions (%d)", len(names))))

	now := time.Now()
	for i, name := range names {
		fmt.Fprintf(out, "%d. %s\n", i+1, ui.Accent(name))

		session, err := auth.LoadSession(name)
		if err != nil {
			fmt.Fprintf(out, "   %s\n", ui.Warn("unavailable: "+err.Error()))
			continue
		}
		fmt.Fprintf(out, "   %s\n", ui.Label("URL", session.URL))
		fmt.Fprintf(out, "   %s\n", ui.Label("Cookies", fmt.Sprintf("%d", len(session.Cookies))))
		fmt.Fprintf(out, "   %s\n", ui.Label("Expires", expiryText(session, now)))
	}
	fmt.Fprintln(out)
	return nil
}

func runSessionsView(cmd *cobra.Command, args []string) error {
	name := args[0]
	session, err := auth.LoadSession(name)
	if err != nil {
		return fmt.Errorf("failed to load session '%s': %w", name, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n\n", ui.Bold("Session: "+name))
	fmt.Fprintf(out, "  %s\n", ui.Label("URL", session.URL))
	fmt.Fprintf(out, "  %s\n", ui.Label("Created", session.CreatedAt.Format(time.RFC1123)))
	fmt.Fprintf(out, "  %s\n", ui.Label("Expires", expiryText(session, time.Now())))

	fmt.Fprintf(out, "\n%s\n", ui.Bold(fmt.Sprintf("Cookies (%d)", len(session.Cookies))))
	for i, c := range session.Cookies {
		if i >= 10 {
			fmt.Fprintf(out, "  ... and %d more\n", len(session.Cookies)-10)
			break
		}
		fmt.Fprintf(out, "  - %s %s\n", c.Name, ui.Dim("("+c.Domain+")"))
	}

	if len(session.Headers) > 0 {
		keys := make([]string, 0, len(session.Headers))
		for k := range session.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(out, "\n%s\n", ui.Bold(fmt.Sprintf("Headers (%d)", len(keys))))
		for _, k := range keys {
			fmt.Fprintf(out, "  - %s: %s\n", k, session.Headers[k])
		}
	}
	fmt.Fprintln(out)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	out := cmd.OutOrStdout()

	if !assumeYes {
		fmt.Fprintf(out, "\nDelete session '%s'? [y/N]: ", name)
		var confirm string
		fmt.Fscanln(cmd.InOrStdin(), &confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := auth.DeleteSessionWithManifest(name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Fprintf(out, "\n%s\n\n", ui.Success(fmt.Sprintf("✓ Session '%s' deleted.", name)))
	return nil
}
