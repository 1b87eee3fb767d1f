package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of seisreport",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seisreport v%s\n", Version)                             //nolint:errcheck // console output
			fmt.Fprintln(out, "ASCE 7-16 seismic design values via USGS design maps") //nolint:errcheck // console output
		},
	}
}
