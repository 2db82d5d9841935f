package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrNoEnvFile reports that none of the candidate .env files could be loaded.
// Commands treat it as informational: the process environment alone is a valid setup.
var ErrNoEnvFile = errors.New("no env file loaded")

// EnvOverrideVar names an environment variable that points at an explicit .env file.
const EnvOverrideVar = "BUNDLEFEED_ENV_FILE"

// EnvLoader loads .env files with a predictable override order.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	value := fs.String("env", defaultPath, description)
	return &EnvLoader{
		value:       value,
		defaultPath: defaultPath,
	}
}

// Load resolves and loads environment variables. The explicit override variable wins,
// then the --env flag value, then the default path. Variables from the loaded file
// replace those already present in the process environment.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	for _, candidate := range l.candidates() {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := godotenv.Overload(candidate); err != nil {
			return "", fmt.Errorf("load env file %s: %w", candidate, err)
		}
		return candidate, nil
	}
	return "", ErrNoEnvFile
}

func (l *EnvLoader) candidates() []string {
	out := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	add := func(path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	add(os.Getenv(EnvOverrideVar))
	if l.value != nil {
		add(*l.value)
	}
	add(l.defaultPath)
	return out
}
