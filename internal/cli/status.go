package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize tracked components",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Status(ctx)
	if err != nil {
		return err
	}
	if len(result.Entries) == 0 {
		fmt.Println("no tracked components")
		return nil
	}
	for _, entry := range result.Entries {
		var flags []string
		if entry.Modified {
			flags = append(flags, "modified")
		}
		if entry.Staged {
			flags = append(flags, "staged")
		}
		if len(entry.Missing) > 0 {
			flags = append(flags, fmt.Sprintf("%d missing", len(entry.Missing)))
		}
		if len(flags) == 0 {
			flags = append(flags, "ok")
		}
		fmt.Printf("%-40s %-10s %s\n", entry.ID, entry.Origin, strings.Join(flags, ", "))
	}
	return nil
}
