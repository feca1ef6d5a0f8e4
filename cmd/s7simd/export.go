package main

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/AntDeM/S7-DB-Simulator/internal/plcconfig"
)

func newExportCommand() *cobra.Command {
	var (
		configPath string
		csvPath    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Re-serialize a validated configuration into another format (yaml<->csv)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tree, err := loadAndValidate(configPath)
			if err != nil {
				return err
			}
			outCodec, err := plcconfig.CodecFor(csvPath)
			if err != nil {
				return errors.Trace(err)
			}
			if err := outCodec.Save(csvPath, tree); err != nil {
				return errors.Annotate(err, "writing exported config")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", csvPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the DB configuration file (yaml or csv)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "output path (extension selects the format)")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("csv")

	return cmd
}
