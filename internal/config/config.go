package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for datatime.
type Config struct {
	LogDir     string           `toml:"log_dir,omitempty"` // when set, diagnostics are also appended to <log_dir>/datatime.log
	Timeline   TimelineConfig   `toml:"timeline"`
	Input      InputConfig      `toml:"input"`
	Index      IndexConfig      `toml:"index"`
	S3         S3Config         `toml:"s3"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// TimelineConfig holds the defaults for timeline assembly and rendering.
type TimelineConfig struct {
	Timezone  string   `toml:"timezone"`             // POSIX zone string, e.g. "EST-5EDT,M4.1.0,M10.1.0"
	Mode      string   `toml:"mode"`                 // "columnar" (default), "delimited" or "body"
	Kinds     []string `toml:"kinds,omitempty"`      // subset of m, a, c, b; empty means all
	StartDate string   `toml:"start_date,omitempty"` // yyyy-mm-dd, inclusive
	EndDate   string   `toml:"end_date,omitempty"`   // yyyy-mm-dd, inclusive
	HideSize  bool     `toml:"hide_size"`
	HideTime  bool     `toml:"hide_time"`
	TrimName  int      `toml:"trim_name"` // columnar only; -1 disables truncation
	AllFields bool     `toml:"all_fields"`
}

// InputConfig describes how body files are split into fields.
type InputConfig struct {
	FieldSeparator string   `toml:"field_separator"`
	Qualifier      string   `toml:"qualifier,omitempty"` // optional quote character
	Exclude        []string `toml:"exclude,omitempty"`   // globs skipped under directory and s3 prefix inputs; "dir/" prunes a subtree
}

// IndexConfig selects the timeline index backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type IndexConfig struct {
	Type       string `toml:"type"`                // "memory" or "sqlite"
	SpillDir   string `toml:"spill_dir,omitempty"` // only used for type=sqlite
	MaxEntries int    `toml:"max_entries"`         // 0 means unlimited
}

// S3Config configures access to s3:// input sources.
type S3Config struct {
	Region          string `toml:"region,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	Profile         string `toml:"profile,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `toml:"use_path_style,omitempty"`
}

// EncryptionConfig points at the age identity used to read *.age inputs.
type EncryptionConfig struct {
	IdentityPath string `toml:"identity_path,omitempty"`
}

// NewConfig returns a Config holding the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Timeline: TimelineConfig{
			Timezone: "GMT",
			Mode:     "columnar",
			TrimName: -1,
		},
		Input: InputConfig{
			FieldSeparator: "|",
		},
		Index: IndexConfig{
			Type: "memory",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys absent from the input
// keep their default values.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := NewConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// ReadOrDefault reads the config at path, or returns the defaults when no
// file exists there.
func ReadOrDefault(path string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewConfig(), nil
	}
	return cfg, err
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
