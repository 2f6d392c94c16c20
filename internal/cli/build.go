package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"compkit/internal/app"
	"compkit/internal/types"
)

type buildOptions struct {
	NoCache     bool
	KeepCapsule bool
}

func newBuildCommand() *cobra.Command {
	opts := buildOptions{}
	cmd := &cobra.Command{
		Use:   "build <component-id>",
		Short: "Build a component with its configured compiler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "Force a rebuild, ignoring cached dists")
	cmd.Flags().BoolVar(&opts.KeepCapsule, "keep-capsule", false, "Keep the build capsule for inspection")
	_ = viper.BindPFlag("no_cache", cmd.Flags().Lookup("no-cache"))
	_ = viper.BindPFlag("keep_capsule", cmd.Flags().Lookup("keep-capsule"))
	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, rawID string, opts buildOptions) error {
	id, err := types.ParseComponentID(rawID)
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Build(ctx, app.BuildRequest{
		ID:          id,
		NoCache:     resolveBool(cmd, opts.NoCache, "no_cache", "no-cache"),
		KeepCapsule: resolveBool(cmd, opts.KeepCapsule, "keep_capsule", "keep-capsule"),
	})
	if err != nil {
		return err
	}
	if result.Rebuilt {
		fmt.Printf("built %s: %d dists\n", result.ID, len(result.Dists))
	} else {
		fmt.Printf("%s is up to date (%d cached dists)\n", result.ID, len(result.Dists))
	}
	if result.CapsulePath != "" {
		fmt.Printf("capsule kept at %s\n", result.CapsulePath)
	}
	return nil
}
