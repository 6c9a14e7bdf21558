package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalstream/loader"
)

// NewExamplesCmd creates the "examples" subcommand.
func NewExamplesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples [name]",
		Short: "List or run the built-in example pipelines",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExamples,
	}
	cmd.Flags().Bool("all", false, "Run every example")
	return cmd
}

func runExamples(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	out := cmd.OutOrStdout()

	if len(args) == 0 && !all {
		defs, err := loader.Scenarios()
		if err != nil {
			return exitError(exitValidation, "loading examples: %v", err)
		}
		for _, def := range defs {
			fmt.Fprintf(out, "%-14s %s\n", def.Name, def.Description)
		}
		return nil
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd.Context())

	if len(args) == 1 {
		def, err := loader.Scenario(args[0])
		if errors.Is(err, loader.ErrUnknownScenario) {
			return exitError(exitFileNotFound, "unknown example %q (run 'petalstream examples' to list them)", args[0])
		}
		if err != nil {
			return exitError(exitValidation, "%v", err)
		}
		return runDefinition(out, s, def)
	}

	defs, err := loader.Scenarios()
	if err != nil {
		return exitError(exitValidation, "loading examples: %v", err)
	}
	var failed []string
	for _, def := range defs {
		fmt.Fprintf(out, "=== %s ===\n", def.Name)
		if err := runDefinition(out, s, def); err != nil {
			failed = append(failed, def.Name)
		}
	}
	if len(failed) > 0 {
		return exitError(exitRuntime, "%d examples failed: %v", len(failed), failed)
	}
	return nil
}
