package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"compkit/internal/app"
	"compkit/internal/types"
)

type ejectOptions struct {
	TargetDir string
}

func newEjectCommand() *cobra.Command {
	opts := ejectOptions{}
	cmd := &cobra.Command{
		Use:   "eject-config <component-id>",
		Short: "Write a component's configuration into its own directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEject(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.TargetDir, "dir", "", "Directory to eject into (defaults to the component dir)")
	_ = viper.BindPFlag("eject_dir", cmd.Flags().Lookup("dir"))
	return cmd
}

func runEject(ctx context.Context, cmd *cobra.Command, rawID string, opts ejectOptions) error {
	id, err := types.ParseComponentID(rawID)
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	if err := service.EjectConfig(ctx, app.EjectConfigRequest{
		ID:        id,
		TargetDir: resolveString(cmd, opts.TargetDir, "eject_dir", "dir"),
	}); err != nil {
		return err
	}
	fmt.Printf("configuration ejected for %s\n", id)
	return nil
}

func newInjectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inject-config <component-id>",
		Short: "Re-bind a component to the workspace configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInject(cmd.Context(), args[0])
		},
	}
}

func runInject(ctx context.Context, rawID string) error {
	id, err := types.ParseComponentID(rawID)
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	if err := service.InjectConfig(ctx, app.InjectConfigRequest{ID: id}); err != nil {
		return err
	}
	fmt.Printf("configuration injected for %s\n", id)
	return nil
}
