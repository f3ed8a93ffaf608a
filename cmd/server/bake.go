package main

import (
	"github.com/spf13/cobra"

	"easy-ai/server/internal/app"
	"easy-ai/server/internal/config"
)

func BakeCmd() *cobra.Command {
	var configFile, out string
	c := &cobra.Command{
		Use:   "bake",
		Short: "build the level's navigation table and write it to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if out != "" {
				cfg.Navigation.TablePath = out
			}
			_, err = app.Bake(cmd.Context(), cfg, app.Options{Stdout: cmd.OutOrStdout()})
			return err
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file (.yaml, .yml, .hjson or .json)")
	c.Flags().StringVar(&out, "out", "", "table path, overriding navigation.tablePath")
	return c
}
