// Package artifact persists the files of one run to a local directory or an
// object store. Names are slash-separated paths relative to the run root.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by Get when no artifact has the given name.
var ErrNotFound = errors.New("artifact not found")

// Store holds the artifacts of a single run.
type Store interface {
	// Put writes data under name, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the persisted bytes of name.
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns every artifact name, sorted.
	List(ctx context.Context) ([]string, error)
	// Location is a human-readable address of the run root.
	Location() string
}

// cleanName rejects absolute names and names escaping the run root.
func cleanName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("artifact name is empty")
	}
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("artifact name %q must be relative", name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("artifact name %q escapes the run root", name)
	}
	return clean, nil
}
