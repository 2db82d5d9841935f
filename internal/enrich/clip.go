package enrich

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Clipper renders a page into a document file by running an external command as
// `<command...> <page url> <output path>`.
type Clipper struct {
	command []string
	dir     string
	timeout time.Duration
}

// NewClipper returns nil when command is empty, which disables clipping.
func NewClipper(command []string, dir string, timeout time.Duration) *Clipper {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Clipper{
		command: append([]string(nil), command...),
		dir:     dir,
		timeout: timeout,
	}
}

// OutputPath is where the clip for item id is written.
func (c *Clipper) OutputPath(id string) string {
	return filepath.Join(c.dir, id+".pdf")
}

// Clip runs the command for pageURL and returns the path of the produced file. A
// failed, timed out or empty result removes any partial output.
func (c *Clipper) Clip(ctx context.Context, id string, pageURL string) (string, error) {
	id = strings.TrimSpace(id)
	pageURL = strings.TrimSpace(pageURL)
	if id == "" || pageURL == "" {
		return "", fmt.Errorf("clip needs an id and a page url")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("create clip dir: %w", err)
	}

	out := c.OutputPath(id)
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := append(append([]string(nil), c.command[1:]...), pageURL, out)
	cmd := exec.CommandContext(runCtx, c.command[0], args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("clip command failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(out)
		return "", fmt.Errorf("clip command produced no output at %s", out)
	}
	return out, nil
}
