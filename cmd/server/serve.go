package main

import (
	"github.com/spf13/cobra"

	"easy-ai/server/internal/app"
	"easy-ai/server/internal/config"
)

func ServeCmd() *cobra.Command {
	var configFile string
	c := &cobra.Command{
		Use:   "serve",
		Short: "run the simulation and the inspection server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, app.Options{Stdout: cmd.OutOrStdout()})
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file (.yaml, .yml, .hjson or .json)")
	return c
}
