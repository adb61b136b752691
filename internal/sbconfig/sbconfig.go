// Package sbconfig reads the process's startup configuration from
// environment variables. A single-tenant sandbox host has no project
// directory or settings file to merge against, so Load reads the
// environment once and returns a Config with defaults filled in.
package sbconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config is the process's resolved startup configuration.
type Config struct {
	Addr       string // HTTP listen address
	User       string // sandbox user name; the storage paths below derive from Home, not User
	Home       string // $HOME
	WorkingDir string // default cwd for terminals and the editor
	ShellPath  string // login shell to spawn per terminal session

	ChromeInstancePath     string // optional path to a Chromium binary
	BrowserUseLoggingLevel string
	AnonymizedTelemetry    bool

	LocalStorageDir string // $HOME/local_storage
	UploadDir       string // $HOME/upload
	SecretsDir      string // $HOME/.secrets
}

// Load reads Config from the environment. HOME must be set; every other
// variable falls back to a default.
func Load() (*Config, error) {
	home := os.Getenv("HOME")
	if home == "" {
		return nil, fmt.Errorf("sbconfig: HOME must be set")
	}

	cfg := &Config{
		Addr:       getenvDefault("SANDBOX_ADDR", ":8080"),
		User:       getenvDefault("SANDBOX_USER", filepath.Base(home)),
		Home:       home,
		WorkingDir: getenvDefault("SANDBOX_WORKDIR", home),
		ShellPath:  getenvDefault("SANDBOX_SHELL", "/bin/bash"),

		ChromeInstancePath:     os.Getenv("CHROME_INSTANCE_PATH"),
		BrowserUseLoggingLevel: getenvDefault("BROWSER_USE_LOGGING_LEVEL", "info"),
		AnonymizedTelemetry:    getenvBool("ANONYMIZED_TELEMETRY", false),
	}
	cfg.LocalStorageDir = filepath.Join(home, "local_storage")
	cfg.UploadDir = filepath.Join(home, "upload")
	cfg.SecretsDir = filepath.Join(home, ".secrets")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
