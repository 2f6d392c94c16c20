package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"compkit/internal/app"
	"compkit/internal/types"
)

type snapshotOptions struct {
	Version  string
	Message  string
	Username string
	Email    string
}

func newSnapshotCommand() *cobra.Command {
	opts := snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot <component-id>",
		Short: "Persist a component version into the model store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.Version, "set-version", "", "Version to store the component under")
	cmd.Flags().StringVar(&opts.Message, "message", "", "Creation log message")
	cmd.Flags().StringVar(&opts.Username, "username", "", "Creation log username")
	cmd.Flags().StringVar(&opts.Email, "email", "", "Creation log email")
	_ = viper.BindPFlag("set_version", cmd.Flags().Lookup("set-version"))
	_ = viper.BindPFlag("message", cmd.Flags().Lookup("message"))
	_ = viper.BindPFlag("username", cmd.Flags().Lookup("username"))
	_ = viper.BindPFlag("email", cmd.Flags().Lookup("email"))
	return cmd
}

func runSnapshot(ctx context.Context, cmd *cobra.Command, rawID string, opts snapshotOptions) error {
	id, err := types.ParseComponentID(rawID)
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Snapshot(ctx, app.SnapshotRequest{
		ID:       id,
		Version:  resolveString(cmd, opts.Version, "set_version", "set-version"),
		Message:  resolveString(cmd, opts.Message, "message", "message"),
		Username: resolveString(cmd, opts.Username, "username", "username"),
		Email:    resolveString(cmd, opts.Email, "email", "email"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("stored %s\n", result.ID)
	return nil
}
