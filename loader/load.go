package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petal-labs/petalstream/pipeline"
)

// Load reads a definition file, decodes it and checks that it compiles.
// A definition without a name is named after the file.
func Load(path string) (*pipeline.Definition, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return LoadBytes(data, path)
}

// LoadBytes is Load for content already in memory. path is used only for
// format detection, naming and error messages.
func LoadBytes(data []byte, path string) (*pipeline.Definition, error) {
	jsonData, err := toJSON(data, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var def pipeline.Definition
	if err := json.Unmarshal(jsonData, &def); err != nil {
		return nil, fmt.Errorf("parsing pipeline definition %s: %w", path, err)
	}
	if def.Name == "" {
		base := filepath.Base(path)
		def.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if _, err := pipeline.Compile(def, pipeline.Options{}); err != nil {
		return nil, &ValidationError{Path: path, Err: err}
	}
	return &def, nil
}

// ValidationError reports a definition that decodes but does not compile.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	var joined interface{ Unwrap() []error }
	if errors.As(e.Err, &joined) {
		if errs := joined.Unwrap(); len(errs) > 1 {
			return fmt.Sprintf("%s: %d validation errors (first: %s)", e.Path, len(errs), errs[0])
		}
	}
	return fmt.Sprintf("%s: validation error: %s", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
