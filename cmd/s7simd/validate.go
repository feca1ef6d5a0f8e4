package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a DB configuration file without starting the simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, _, err := loadAndValidate(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d DB(s) validated\n", len(defs))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the DB configuration file (yaml or csv)")
	cmd.MarkFlagRequired("config")

	return cmd
}
