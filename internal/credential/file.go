package credential

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// flatKeys are the top-level key names accepted in credential files that do
// not use the nested claudeAiOauth shape.
var flatKeys = []string{"oauth_token", "token", "accessToken"}

// parseCredentialData extracts a token from secret-store output or a
// credential file body. It accepts the nested Claude Code shape, the flat
// key variants, or a bare token string. Malformed JSON is treated as
// not-found, never as an error.
func parseCredentialData(data []byte) (string, bool) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", false
	}
	if validToken(trimmed) {
		return trimmed, true
	}
	if !gjson.Valid(trimmed) {
		return "", false
	}
	if tok := gjson.Get(trimmed, "claudeAiOauth.accessToken").String(); validToken(tok) {
		return tok, true
	}
	for _, key := range flatKeys {
		if tok := gjson.Get(trimmed, key).String(); validToken(tok) {
			return tok, true
		}
	}
	return "", false
}

// tokenFromFile reads and parses one candidate credential file. Any read or
// parse failure is logged at debug and reported as not-found.
func tokenFromFile(path string, logger *slog.Logger) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("credential file unreadable", "path", path, "error", err)
		return "", false
	}
	token, ok := parseCredentialData(data)
	if !ok {
		logger.Debug("credential file had no usable token", "path", path)
		return "", false
	}
	logger.Debug("token resolved from credential file", "path", path)
	return token, true
}

// tokenFromFiles walks an ordered list of candidate paths, returning the
// first usable token.
func tokenFromFiles(paths []string, logger *slog.Logger) (string, bool) {
	for _, path := range paths {
		if token, ok := tokenFromFile(path, logger); ok {
			return token, true
		}
	}
	return "", false
}

// unixCredentialPaths returns the candidate credential files on macOS and
// Linux: the primary ~/.claude file first, then the XDG config location.
func unixCredentialPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".claude", ".credentials.json"))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "claude", ".credentials.json"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "claude", ".credentials.json"))
	}
	return paths
}

// windowsCredentialPaths returns the candidate credential files on Windows:
// the primary ~/.claude file first, then AppData and LocalAppData.
func windowsCredentialPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".claude", ".credentials.json"))
	}
	if appData := os.Getenv("APPDATA"); appData != "" {
		paths = append(paths, filepath.Join(appData, "claude", ".credentials.json"))
	}
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		paths = append(paths, filepath.Join(localAppData, "claude", ".credentials.json"))
	}
	return paths
}
