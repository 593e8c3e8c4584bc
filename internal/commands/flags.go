package commands

import (
	"os"
	"path/filepath"

	"github.com/colonyops/redline/internal/core/config"
)

const appName = "redline"

// Flags are the global flags shared by every command.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/redline/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdgHome("XDG_CONFIG_HOME", ".config"), appName, "config.yaml")
}

// DefaultDataDir returns $XDG_DATA_HOME/redline. History, logs and the
// sqlite database live here.
func DefaultDataDir() string {
	return filepath.Join(xdgHome("XDG_DATA_HOME", ".local", "share"), appName)
}

// xdgHome returns the directory named by env, or fallback joined onto the
// user's home directory when env is unset.
func xdgHome(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(append([]string{home}, fallback...)...)
}
