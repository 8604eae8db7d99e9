package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/auth"
	"github.com/law-makers/sourcer/internal/ui"
	urlutil "github.com/law-makers/sourcer/internal/utils/url"
)

var (
	importURL    string
	importFormat string
	importFile   string
)

var sessionsImportCmd = &cobra.Command{
	Use:   "import <session-name>",
	Short: "Create a session from cookies exported by your browser",
	Long: `Creates a login session from cookies copied out of a browser where you are
already signed in to 1688. Use this where the interactive login cannot open a
window (servers, containers, CI).

Accepted formats:
  - json: a cookie array as exported by DevTools or a cookie extension
  - netscape: a curl/wget cookie jar
  - header: the value of a request's Cookie header ("a=1; b=2")`,
	Example: `  # Import a cookie extension export
  sourcer sessions import buyer --file cookies.json

  # Import a curl cookie jar from stdin
  sourcer sessions import buyer --format netscape < cookies.txt

  # Paste a Cookie header copied from the network tab
  echo 'cookie2=...; _tb_token_=...' | sourcer sessions import buyer --format header`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsImport,
}

func init() {
	sessionsCmd.AddCommand(sessionsImportCmd)

	sessionsImportCmd.Flags().StringVar(&importURL, "url", "https://www.1688.com/", "Site the cookies belong to")
	sessionsImportCmd.Flags().StringVar(&importFormat, "format", "json", "Import format: json, netscape, or header")
	sessionsImportCmd.Flags().StringVar(&importFile, "file", "", "Read cookies from this file instead of stdin")
}

func parseCookies(r io.Reader, format, siteURL string) ([]auth.Cookie, error) {
	switch format {
	case "json":
		return auth.ParseCookiesJSON(r)
	case "netscape":
		return auth.ParseCookiesNetscape(r)
	case "header":
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		domain := ""
		if host := urlutil.Host(siteURL); host != "" {
			domain = "." + host
		}
		return auth.ParseCookieHeader(string(raw), domain), nil
	}
	return nil, fmt.Errorf("unsupported format: %s (use json, netscape, or header)", format)
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	name := args[0]

	r := cmd.InOrStdin()
	if importFile != "" {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("failed to open cookie file: %w", err)
		}
		defer f.Close()
		r = f
	}

	cookies, err := parseCookies(r, importFormat, importURL)
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies imported")
	}

	session := &auth.SessionData{
		Name:      name,
		URL:       importURL,
		Cookies:   cookies,
		CreatedAt: time.Now(),
	}
	session.ExpiryFromCookies()

	if err := auth.SaveSessionWithManifest(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n", ui.Success(fmt.Sprintf("✓ Session '%s' created with %d cookies", name, len(cookies))))
	if !session.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "  %s\n", ui.Label("Expires", session.ExpiresAt.Format(time.RFC1123)))
	}
	fmt.Fprintf(out, "\nUse with:\n  sourcer scrape <url> --session=%s\n\n", name)
	return nil
}
