package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"compkit/internal/app"
)

type watchOptions struct {
	DebounceMillis int
}

func newWatchCommand() *cobra.Command {
	opts := watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild components when their tracked files change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.DebounceMillis, "debounce-ms", 250, "Debounce window in milliseconds")
	_ = viper.BindPFlag("debounce_ms", cmd.Flags().Lookup("debounce-ms"))
	return cmd
}

func runWatch(ctx context.Context, opts watchOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	return service.Watch(ctx, app.WatchRequest{DebounceMillis: opts.DebounceMillis})
}
