package snapshot

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/guardsim/internal/policy"
)

//go:embed samples/*.yaml
var samplesFS embed.FS

// SampleFiles returns the sample inputs keyed by file name.
func SampleFiles() (map[string][]byte, error) {
	tools, err := samplesFS.ReadFile("samples/" + ToolRegistryName + ".yaml")
	if err != nil {
		return nil, err
	}
	tasks, err := samplesFS.ReadFile("samples/" + TaskDefinitionsName + ".yaml")
	if err != nil {
		return nil, err
	}
	return map[string][]byte{
		ToolRegistryName + ".yaml":    tools,
		AgentPolicyName + ".yaml":     []byte(policy.DefaultConfigYAML()),
		TaskDefinitionsName + ".yaml": tasks,
	}, nil
}

// WriteSamples writes the sample inputs into dir and returns the written paths.
// Existing files are left alone unless force is set.
func WriteSamples(dir string, force bool) ([]string, error) {
	files, err := SampleFiles()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	names := []string{ToolRegistryName + ".yaml", AgentPolicyName + ".yaml", TaskDefinitionsName + ".yaml"}
	if !force {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return nil, fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}
	}

	written := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, files[name], 0o600); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
