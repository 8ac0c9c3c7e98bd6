package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// User is the per-user CLI config (~/.config/lattice/config.yaml).
// Fields left empty defer to the flag defaults.
type User struct {
	LedgerPath    string `yaml:"ledger_path"`
	OutputDir     string `yaml:"output_dir"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	ServerAddress string `yaml:"server_address"`
	Workers       *int   `yaml:"workers"`
}

// UserPath returns the user config location, or "" when the platform has no
// config directory.
func UserPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lattice", "config.yaml")
}

// LoadUser reads the user config at path. A missing file yields a zero User.
func LoadUser(path string) (User, error) {
	if path == "" {
		return User{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return User{}, nil
	}
	if err != nil {
		return User{}, fmt.Errorf("config: read user config: %w", err)
	}
	var u User
	if err := yaml.Unmarshal(data, &u); err != nil {
		return User{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return u, nil
}
