package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"compkit/internal/app"
	"compkit/internal/types"
)

type showOptions struct {
	FromFile string
}

func newShowCommand() *cobra.Command {
	opts := showOptions{}
	cmd := &cobra.Command{
		Use:   "show [component-id]",
		Short: "Print a component's serialized document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawID := ""
			if len(args) > 0 {
				rawID = args[0]
			}
			return runShow(cmd.Context(), cmd, rawID, opts)
		},
	}
	cmd.Flags().StringVar(&opts.FromFile, "from-file", "", "Read a serialized component document instead of the workspace")
	_ = viper.BindPFlag("from_file", cmd.Flags().Lookup("from-file"))
	return cmd
}

func runShow(ctx context.Context, cmd *cobra.Command, rawID string, opts showOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	req := app.ShowRequest{}
	fromFile := resolveString(cmd, opts.FromFile, "from_file", "from-file")
	if fromFile != "" {
		data, err := os.ReadFile(fromFile)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("failed to read component document").
				WithCause(err)
		}
		req.FromJSON = data
	} else {
		if rawID == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("a component id or --from-file is required")
		}
		id, err := types.ParseComponentID(rawID)
		if err != nil {
			return err
		}
		req.ID = id
	}
	doc, err := service.Show(ctx, req)
	if err != nil {
		return err
	}
	rendered, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to render component document").
			WithCause(err)
	}
	fmt.Println(string(rendered))
	return nil
}
