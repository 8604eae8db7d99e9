package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Emit logs as JSON")
	cmd.PersistentFlags().String("proxy", "", "Set HTTP/SOCKS5 proxy (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("timeout", "30s", "Set hard timeout for requests")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().String("source", "", "Page source: auto, static, browser, oxylabs, or apify")
	cmd.PersistentFlags().String("endpoint", "", "Import API endpoint receiving scraped products")
	cmd.PersistentFlags().Bool("no-deliver", false, "Print products instead of posting them to the import API")
	cmd.PersistentFlags().Int("concurrency", 0, "Maximum concurrent scrapes in batch mode")
	cmd.PersistentFlags().Bool("headful", false, "Show the browser window when rendering pages")
}
