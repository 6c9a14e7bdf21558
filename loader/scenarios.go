package loader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/petal-labs/petalstream/pipeline"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// ErrUnknownScenario is returned by Scenario for a name with no embedded file.
var ErrUnknownScenario = errors.New("loader: unknown scenario")

// ScenarioNames lists the embedded scenarios, sorted.
func ScenarioNames() []string {
	entries, err := fs.ReadDir(scenarioFS, "scenarios")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	slices.Sort(names)
	return names
}

// Scenario loads the embedded scenario called name.
func Scenario(name string) (*pipeline.Definition, error) {
	file := path.Join("scenarios", name+".yaml")
	data, err := scenarioFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownScenario, name)
	}
	return LoadBytes(data, file)
}

// Scenarios loads every embedded scenario in name order.
func Scenarios() ([]*pipeline.Definition, error) {
	names := ScenarioNames()
	defs := make([]*pipeline.Definition, 0, len(names))
	for _, name := range names {
		def, err := Scenario(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
