package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/sourcer/internal/cli"
)

func main() {
	// cancelling the context lets batch runs report what was left and lets
	// serve shut down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
