package main

import (
	"github.com/spf13/cobra"
)

var (
	logLevel string
	pretty   bool
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "s7simd",
		Short: "Simulates a Siemens S7 PLC's DB memory over a scriptable, inspectable core",
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "use human-readable console logging instead of JSON")

	root.AddCommand(newRunCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newExportCommand())

	return root
}
