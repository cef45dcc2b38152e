package store

import (
	"os"
	"path/filepath"

	"github.com/tartampluch/bday/internal/config"
)

// CandidatePaths lists where the configuration is searched, in priority order:
//
//	./bday.toml
//	<user config dir>/bday.toml   ($XDG_CONFIG_HOME on Unix)
//	~/.config/bday.toml
//	~/.bday.toml
//
// Entries whose base directory cannot be determined are left out.
func CandidatePaths() []string {
	paths := []string{filepath.Join(config.CurrentDir, config.ConfigFileName)}

	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, config.ConfigFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, config.DotConfigDir, config.ConfigFileName),
			filepath.Join(home, config.HiddenConfigFileName),
		)
	}
	return paths
}

// DefaultPath is where a new configuration is created: the platform user config dir,
// then ~/.config, then the current directory.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, config.ConfigFileName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, config.DotConfigDir, config.ConfigFileName)
	}
	return filepath.Join(config.CurrentDir, config.ConfigFileName)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
