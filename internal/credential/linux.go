package credential

import (
	"context"
	"log/slog"
	"os/user"
)

// linuxResolver reads the freedesktop secret service via secret-tool, then
// falls back to credential files.
type linuxResolver struct {
	logger *slog.Logger
	run    runner
}

func (r *linuxResolver) Resolve(ctx context.Context) (string, bool) {
	if token, ok := r.fromSecretService(ctx); ok {
		return token, true
	}
	return tokenFromFiles(unixCredentialPaths(), r.logger)
}

func (r *linuxResolver) fromSecretService(ctx context.Context) (string, bool) {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		r.logger.Debug("current user unavailable for secret-service lookup", "error", err)
		return "", false
	}
	out, err := r.run(ctx, "secret-tool", "lookup",
		"service", serviceName,
		"account", u.Username)
	if err != nil {
		r.logger.Debug("secret-tool lookup failed", "error", err)
		return "", false
	}
	token, ok := parseCredentialData(out)
	if !ok {
		r.logger.Debug("secret-service entry had no usable token")
		return "", false
	}
	r.logger.Debug("token resolved from secret service")
	return token, true
}
