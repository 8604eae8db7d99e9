package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/app"
	"github.com/law-makers/sourcer/internal/config"
)

// Version is overridden at build time with -ldflags
var Version = "0.1.0"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sourcer",
	Short: "Scrape 1688.com product pages into import-ready records",
	Long: `Sourcer extracts product name, description, price, gallery images and videos
from 1688.com offer pages and posts them to a storefront import API.

Pages are fetched over plain HTTP, rendered in headless Chrome, or obtained
from the Oxylabs and Apify scraping services. The default "auto" source tries
HTTP first and falls back to Chrome when the page is blocked or incomplete.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// closeApp releases the application created for the running command
var closeApp func()

// Execute runs the CLI with ctx, which is cancelled on interrupt by main.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if closeApp != nil {
		closeApp()
		closeApp = nil
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		return 1
	}
	return 0
}

func init() {
	config.RegisterFlags(rootCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().BoolP("help", "h", false, "Help for sourcer")
	rootCmd.Flags().Bool("version", false, "Version for sourcer")
	rootCmd.SetHelpFunc(customHelpFunc)
	rootCmd.SetUsageFunc(customUsageFunc)

	// the application is built lazily so -h and session commands never start it
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}

		if cmd.Annotations[needsApp] == "" {
			app.SetupLogging(cfg)
			return nil
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(cmd, a)
		closeApp = func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
			defer cancel()
			if err := a.Close(ctx); err != nil {
				log.Warn().Err(err).Msg("Error during shutdown")
			}
		}
		return nil
	}
}

func appFrom(cmd *cobra.Command) (*app.Application, error) {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}
