package app

import (
	"fmt"
	"os"
	"path/filepath"

	"datatime/internal/config"
)

const (
	envConfigPath = "DATATIME_CONFIG_PATH"
	envHome       = "DATATIME_HOME"
)

// Defaults are the per-user locations used when the config file does not
// name them.
type Defaults struct {
	ConfigPath   string // $DATATIME_CONFIG_PATH, else ~/.config/datatime.toml
	BaseDir      string // $DATATIME_HOME, else ~/.local/share/datatime
	LogDir       string
	IdentityPath string
	SpillDir     string // sqlite index files for large timelines
}

// GetDefaults resolves the default locations from the environment and the
// user's home directory.
func GetDefaults() (Defaults, error) {
	configPath := os.Getenv(envConfigPath)
	baseDir := os.Getenv(envHome)
	if configPath == "" || baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Defaults{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if configPath == "" {
			configPath = filepath.Join(home, ".config", "datatime.toml")
		}
		if baseDir == "" {
			baseDir = filepath.Join(home, ".local", "share", "datatime")
		}
	}

	return Defaults{
		ConfigPath:   configPath,
		BaseDir:      baseDir,
		LogDir:       filepath.Join(baseDir, "log"),
		IdentityPath: filepath.Join(baseDir, "identity.age"),
		SpillDir:     filepath.Join(baseDir, "spill"),
	}, nil
}

// Config returns the built-in settings with the per-user locations filled
// in. This is what `config init` writes.
func (d Defaults) Config() *config.Config {
	cfg := config.NewConfig()
	cfg.LogDir = d.LogDir
	cfg.Index.SpillDir = d.SpillDir
	cfg.Encryption.IdentityPath = d.IdentityPath
	return cfg
}

// IdentityFor returns the identity file configured in cfg, or the default one.
func (d Defaults) IdentityFor(cfg *config.Config) string {
	if cfg.Encryption.IdentityPath != "" {
		return cfg.Encryption.IdentityPath
	}
	return d.IdentityPath
}
