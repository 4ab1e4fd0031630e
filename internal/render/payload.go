package render

import (
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Payload is the statusline JSON Claude Code pipes to stdin on each render.
// Only the fields the line uses are decoded.
type Payload struct {
	Model struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"model"`
	Workspace struct {
		CurrentDir string `json:"current_dir"`
		ProjectDir string `json:"project_dir"`
	} `json:"workspace"`

	// Branch is filled in by the caller after payload decode; it is not
	// part of the stdin JSON.
	Branch string `json:"-"`
}

// ReadPayload decodes the stdin payload. A missing or malformed payload
// yields a zero value; the line then renders usage-only segments.
func ReadPayload(r io.Reader) Payload {
	var p Payload
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p)
	return p
}

// GitBranch returns the checked-out branch for dir, or "" when dir is not a
// work tree or git is unavailable.
func GitBranch(ctx context.Context, dir string) string {
	if dir == "" {
		return ""
	}
	cmdCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(cmdCtx, "git", "-C", dir, "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
