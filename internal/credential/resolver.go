// Package credential locates the Claude Code OAuth token across the three
// supported platforms. Resolution never fails hard: every miss is reported
// as absent and logged at debug level, because running logged out is a
// normal condition for the statusline.
package credential

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// tokenPrefix is the marker every Claude OAuth access token carries. Values
// without it (unrelated secrets, empty strings) are rejected silently.
const tokenPrefix = "sk-ant-"

// shellTimeout bounds each secret-store helper invocation so a hung agent
// cannot stall the render cycle.
const shellTimeout = 3 * time.Second

// serviceName is the keychain/secret-service entry Claude Code writes.
const serviceName = "Claude Code-credentials"

// Resolver locates a bearer token for the usage endpoint.
type Resolver interface {
	// Resolve returns the token and true, or "" and false when no usable
	// credential exists. It never returns an error.
	Resolve(ctx context.Context) (string, bool)
}

// ForOS selects the resolver for the given GOOS value, chosen once at
// startup. Unrecognized platforms get nil: resolution is skipped entirely,
// with no file or secret-store I/O.
func ForOS(goos string, logger *slog.Logger) Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	switch goos {
	case "darwin":
		return &darwinResolver{logger: logger, run: runCommand}
	case "linux":
		return &linuxResolver{logger: logger, run: runCommand}
	case "windows":
		return &windowsResolver{logger: logger, run: runCommand}
	}
	return nil
}

// validToken reports whether a candidate string is a plausible OAuth token.
func validToken(s string) bool {
	return strings.HasPrefix(s, tokenPrefix)
}

// runner abstracts command execution so platform resolvers are testable
// off-platform.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// runCommand executes a secret-store helper with a bounded timeout.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, shellTimeout)
	defer cancel()
	return exec.CommandContext(cmdCtx, name, args...).Output()
}
