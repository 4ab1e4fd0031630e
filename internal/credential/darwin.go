package credential

import (
	"bufio"
	"context"
	"log/slog"
	"strings"
)

// darwinResolver reads the macOS Keychain via the security CLI, then falls
// back to credential files.
type darwinResolver struct {
	logger *slog.Logger
	run    runner
}

func (r *darwinResolver) Resolve(ctx context.Context) (string, bool) {
	if token, ok := r.fromKeychain(ctx); ok {
		return token, true
	}
	return tokenFromFiles(unixCredentialPaths(), r.logger)
}

// fromKeychain looks the token up in the Keychain. Newer Claude Code builds
// store the entry under a randomly suffixed service name, so the dump is
// enumerated first and the longest matching name wins; the literal legacy
// name is tried when that read fails.
func (r *darwinResolver) fromKeychain(ctx context.Context) (string, bool) {
	if name := r.matchingServiceName(ctx); name != "" && name != serviceName {
		if token, ok := r.readGenericPassword(ctx, name); ok {
			return token, true
		}
	}
	return r.readGenericPassword(ctx, serviceName)
}

// matchingServiceName scans `security dump-keychain` output for service
// names containing the Claude Code entry and returns the longest one.
func (r *darwinResolver) matchingServiceName(ctx context.Context) string {
	out, err := r.run(ctx, "security", "dump-keychain")
	if err != nil {
		r.logger.Debug("keychain dump failed", "error", err)
		return ""
	}
	best := ""
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, `"svce"`) || !strings.Contains(line, serviceName) {
			continue
		}
		name := extractQuotedValue(line)
		if strings.Contains(name, serviceName) && len(name) > len(best) {
			best = name
		}
	}
	return best
}

// extractQuotedValue pulls the service name out of a dump-keychain
// attribute line of the form `    "svce"<blob>="Claude Code-credentials..."`.
func extractQuotedValue(line string) string {
	idx := strings.Index(line, `="`)
	if idx < 0 {
		return ""
	}
	rest := line[idx+2:]
	end := strings.LastIndex(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func (r *darwinResolver) readGenericPassword(ctx context.Context, service string) (string, bool) {
	out, err := r.run(ctx, "security", "find-generic-password", "-s", service, "-w")
	if err != nil {
		r.logger.Debug("keychain lookup failed", "service", service, "error", err)
		return "", false
	}
	token, ok := parseCredentialData(out)
	if !ok {
		r.logger.Debug("keychain entry had no usable token", "service", service)
		return "", false
	}
	r.logger.Debug("token resolved from macOS Keychain", "service", service)
	return token, true
}
