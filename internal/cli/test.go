package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"compkit/internal/app"
	"compkit/internal/types"
)

type testOptions struct {
	RejectOnFailure bool
	Verbose         bool
	Save            bool
	Isolated        bool
	KeepCapsule     bool
}

func newTestCommand() *cobra.Command {
	opts := testOptions{}
	cmd := &cobra.Command{
		Use:   "test <component-id>",
		Short: "Run a component's specs with its configured tester",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.RejectOnFailure, "reject-on-failure", false, "Fail the command when any spec fails")
	cmd.Flags().BoolVar(&opts.Verbose, "verbose", false, "Include a per-file report in failures")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "Persist passing results into the model store")
	cmd.Flags().BoolVar(&opts.Isolated, "isolated", false, "Run inside a disposable capsule")
	cmd.Flags().BoolVar(&opts.KeepCapsule, "keep-capsule", false, "Keep the capsule for inspection")
	_ = viper.BindPFlag("reject_on_failure", cmd.Flags().Lookup("reject-on-failure"))
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
	_ = viper.BindPFlag("save", cmd.Flags().Lookup("save"))
	_ = viper.BindPFlag("isolated", cmd.Flags().Lookup("isolated"))
	_ = viper.BindPFlag("keep_capsule", cmd.Flags().Lookup("keep-capsule"))
	return cmd
}

func runTest(ctx context.Context, cmd *cobra.Command, rawID string, opts testOptions) error {
	id, err := types.ParseComponentID(rawID)
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.RunSpecs(ctx, app.SpecsRequest{
		ID:              id,
		RejectOnFailure: resolveBool(cmd, opts.RejectOnFailure, "reject_on_failure", "reject-on-failure"),
		Verbose:         resolveBool(cmd, opts.Verbose, "verbose", "verbose"),
		Save:            resolveBool(cmd, opts.Save, "save", "save"),
		Isolated:        resolveBool(cmd, opts.Isolated, "isolated", "isolated"),
		KeepCapsule:     resolveBool(cmd, opts.KeepCapsule, "keep_capsule", "keep-capsule"),
	})
	if err != nil {
		return err
	}
	if len(result.Results) == 0 {
		fmt.Printf("%s: no specs to run\n", result.ID)
		return nil
	}
	for _, spec := range result.Results {
		status := "PASS"
		if !spec.Pass {
			status = "FAIL"
		}
		fmt.Printf("%s %s\n", status, spec.FilePath)
	}
	return nil
}
