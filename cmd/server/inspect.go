package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"easy-ai/server/internal/app"
)

func InspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <table>",
		Short: "print a navigation table summary and check every route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.Inspect(args[0])
			if err != nil {
				return err
			}
			report.Print(cmd.OutOrStdout())
			if len(report.Broken) > 0 {
				return fmt.Errorf("%d broken routes", len(report.Broken))
			}
			return nil
		},
	}
}
