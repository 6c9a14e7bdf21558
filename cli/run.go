package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalstream"
	"github.com/petal-labs/petalstream/core"
	"github.com/petal-labs/petalstream/loader"
	"github.com/petal-labs/petalstream/pipeline"
)

// NewRunCmd creates the "run" subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a pipeline definition file",
		Long:  runLong(),
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	cmd.Flags().Bool("dry-run", false, "Load and compile only, do not subscribe")
	return cmd
}

// runLong describes the definition format, listing the named functions the
// pipeline compiler knows.
func runLong() string {
	unary, binary, preds := pipeline.FunctionNames()
	return fmt.Sprintf(`Run a pipeline definition file (JSON or YAML) and print each output
value as a JSON line, followed by the completion.

Named functions:
  map:          %s
  scan, reduce: %s
  predicates:   %s`,
		strings.Join(unary, ", "), strings.Join(binary, ", "), strings.Join(preds, ", "))
}

func runRun(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd.Context())

	def, err := loader.Load(filePath)
	if err != nil {
		return loadError(cmd, filePath, err)
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Validation and compilation successful.")
		return nil
	}
	return runDefinition(cmd.OutOrStdout(), s, def)
}

func loadError(cmd *cobra.Command, filePath string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return exitError(exitFileNotFound, "file not found: %s", filePath)
	}
	var verr *loader.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(cmd.ErrOrStderr(), verr.Err)
		return exitError(exitValidation, "validation failed")
	}
	return exitError(exitValidation, "%v", err)
}

// runDefinition subscribes to the compiled pipeline with unlimited demand,
// printing each value as a JSON line followed by the completion.
func runDefinition(out io.Writer, s *session, def *pipeline.Definition) error {
	p, err := pipeline.Compile(*def, pipeline.Options{Logger: s.logger, Handler: s.handler})
	if err != nil {
		return exitError(exitValidation, "%v", err)
	}

	var (
		completion core.Completion
		done       bool
		writeErr   error
	)
	petalstream.Sink(p, func(c core.Completion) {
		completion = c
		done = true
	}, func(v any) {
		if writeErr != nil {
			return
		}
		writeErr = writeValue(out, v)
	})

	if writeErr != nil {
		return exitError(exitRuntime, "writing output: %v", writeErr)
	}
	if !done {
		// Every pipeline source is synchronous, so an open stream here is a bug.
		return exitError(exitRuntime, "pipeline %s did not complete", def.Name)
	}
	if !completion.IsFinished() {
		fmt.Fprintf(out, "failed: %v\n", completion.Err)
		return exitError(exitRuntime, "pipeline %s failed: %v", def.Name, completion.Err)
	}
	fmt.Fprintln(out, "finished")
	return nil
}

func writeValue(out io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}
