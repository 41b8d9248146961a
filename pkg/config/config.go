package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// Config is the tool configuration. Everything here has a sensible
// default; a config file is only written when a value is changed.
type Config struct {
	path      string
	configDir string

	// PackagesIndexURL is the extra index consulted when the running
	// interpreter is a pre-release build, and the base URL prebuilt
	// MSYS2 payloads are downloaded from.
	PackagesIndexURL string `json:"packages-index-url"`

	// CondaChannel is the channel batched conda installs target.
	CondaChannel string `json:"conda-channel"`

	// RequirementExtras appends directive tokens to matching project
	// dependencies, eg {"lief": "--conda=py-lief --only-binary"}.
	RequirementExtras map[string]string `json:"requirement-extras"`

	// Python overrides interpreter discovery.
	Python string `json:"python"`

	// PipUpgrade makes --upgrade the default for every pip install.
	PipUpgrade bool `json:"pip-upgrade"`
}

const (
	DefaultConfigPath   = "~/.config/provis/config.json"
	DefaultCondaChannel = "conda-forge"
)

func LoadConfig() (*Config, error) {
	if loc := os.Getenv("PROVIS_CONFIG"); loc != "" {
		return loadFile(loc)
	}

	path, err := homedir.Expand(DefaultConfigPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		return loadFile(path)
	}

	cfg := &Config{
		path:      path,
		configDir: filepath.Dir(path),

		CondaChannel: DefaultCondaChannel,
	}

	return updateFromEnv(cfg)
}

func loadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config %s", path)
	}

	defer f.Close()

	cfg := &Config{
		path:      path,
		configDir: filepath.Dir(path),

		CondaChannel: DefaultCondaChannel,
	}

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding config %s", path)
	}

	return updateFromEnv(cfg)
}

func updateFromEnv(cfg *Config) (*Config, error) {
	if url := os.Getenv("PROVIS_PACKAGES_INDEX"); url != "" {
		cfg.PackagesIndexURL = url
	}

	if python := os.Getenv("PROVIS_PYTHON"); python != "" {
		cfg.Python = python
	}

	if up := os.Getenv("PIP_UPGRADE"); up != "" {
		if b, err := strconv.ParseBool(up); err == nil {
			cfg.PipUpgrade = b
		} else {
			cfg.PipUpgrade = true
		}
	}

	return cfg, nil
}

// Save writes the config back to the location it was loaded from.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0755); err != nil {
		return err
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}

	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(c)
}
