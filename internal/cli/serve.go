package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/server"
)

var (
	serveAddr      string
	serveMaxBatch  int
	requestTimeout time.Duration
)

var serveCmd = withApp(&cobra.Command{
	Use:   "serve",
	Short: "Serve the scrape pipeline over HTTP",
	Long: `Starts an HTTP API so the storefront can trigger scrapes directly:

  - GET  /health           liveness probe
  - POST /api/v1/scrape    {"url": "...", "source": "auto", "deliver": true}
  - POST /api/v1/batch     {"urls": ["...", "..."]}

The server shuts down gracefully on Ctrl-C or SIGTERM.`,
	Example: `  # Listen on the configured address (default :8080)
  sourcer serve

  # Listen on a specific port and never deliver unless a request asks
  sourcer serve --addr :9090 --no-deliver`,
	Args: cobra.NoArgs,
	RunE: runServe,
})

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().IntVar(&serveMaxBatch, "max-batch", 100, "Maximum URLs accepted per batch request")
	serveCmd.Flags().DurationVar(&requestTimeout, "request-timeout", 5*time.Minute, "Timeout for a single API request")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}

	addr := a.Config.ServerAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(a.Runner, a.Batch.Concurrency(), server.Options{
		Addr:           addr,
		RequestTimeout: requestTimeout,
		AllowedOrigins: a.Config.AllowedOrigins,
		MaxBatch:       serveMaxBatch,
		Deliver:        a.Config.Deliver,
	})
	return srv.ListenAndServe(cmd.Context())
}
