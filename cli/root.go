// Package cli implements the petalstream command line: running pipeline
// definition files, the built-in example scenarios and cron tick streams.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the petalstream command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "petalstream",
		Short: "PetalStream reactive pipeline CLI",
		Long:  "PetalStream runs declarative publisher/operator pipelines with demand-driven backpressure.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}

	root.PersistentFlags().Bool("verbose", false, "Enable debug logging, including every subscription event")
	root.PersistentFlags().Bool("quiet", false, "Suppress all logging except errors")
	root.PersistentFlags().String("otlp-endpoint", "", "Export subscription spans to this OTLP/HTTP endpoint URL")
	root.PersistentFlags().Bool("metrics", false, "Print a summary of stream metrics to stderr on exit")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("petalstream version %s\n", version))

	root.AddCommand(NewRunCmd())
	root.AddCommand(NewExamplesCmd())
	root.AddCommand(NewTickCmd())
	return root
}
