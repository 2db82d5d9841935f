package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"horse.fit/bundlefeed/internal/bundle"
)

var (
	// ErrBundlesMissing means the bundle definition document does not exist.
	ErrBundlesMissing = errors.New("bundle definition not found")
	// ErrBundlesEmpty means the bundle definition document holds only whitespace.
	ErrBundlesEmpty = errors.New("bundle definition is empty")
)

// LoadQueries reads and parses the bundle definition at path. Every error it returns
// is a configuration error.
func LoadQueries(path string) ([]bundle.QuerySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBundlesMissing, path)
		}
		return nil, fmt.Errorf("read bundle definition %s: %w", path, err)
	}

	document := string(data)
	if strings.TrimSpace(document) == "" {
		return nil, fmt.Errorf("%w: %s", ErrBundlesEmpty, path)
	}

	specs, err := bundle.ParseRequired(document)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// IsConfigError reports whether err aborts a run before any network activity.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrBundlesMissing) ||
		errors.Is(err, ErrBundlesEmpty) ||
		errors.Is(err, bundle.ErrNoQueries)
}
