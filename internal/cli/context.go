// Package cli provides the command-line interface for sourcer.
package cli

import (
	"context"

	"github.com/law-makers/sourcer/internal/app"
	"github.com/spf13/cobra"
)

type ctxKey string

const appKey ctxKey = "app"

// annotation marking commands that need the full application graph
const needsApp = "sourcer/needs-app"

// SetApp stores the Application in the command's context
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey, a))
}

// GetAppFromCmd returns the Application stored on cmd, or nil
func GetAppFromCmd(cmd *cobra.Command) *app.Application {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	a, _ := cmd.Context().Value(appKey).(*app.Application)
	return a
}

func withApp(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[needsApp] = "true"
	return cmd
}
