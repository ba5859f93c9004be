// Package config reads the optional YAML file describing where certificates are
// kept and how they are issued.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/wolfeidau/localtls/internal/lifecycle"
	"github.com/wolfeidau/localtls/internal/pki"
	"gopkg.in/yaml.v3"
)

// Identity holds the issuance settings for the CA or the server certificate.
type Identity struct {
	KeyBits int        `yaml:"keyBits"`
	Window  pki.Window `yaml:"window"`
}

type Config struct {
	Dir       string   `yaml:"dir"`
	CustomSAN string   `yaml:"customSan"`
	Product   string   `yaml:"product"`
	CA        Identity `yaml:"ca"`
	Server    Identity `yaml:"server"`
}

// Default returns the built-in settings. Dir is left empty.
func Default() *Config {
	return &Config{
		Product: pki.DefaultProduct,
		CA: Identity{
			KeyBits: pki.CAKeyBits,
			Window:  pki.CAWindow,
		},
		Server: Identity{
			KeyBits: pki.LeafKeyBits,
			Window:  pki.LeafWindow,
		},
	}
}

// Load reads path over the defaults; fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks key sizes and lifetime windows.
func (c *Config) Validate() error {
	var errs []error

	if c.CA.KeyBits < pki.LeafKeyBits {
		errs = append(errs, fmt.Errorf("ca.keyBits must be at least %d, got %d", pki.LeafKeyBits, c.CA.KeyBits))
	}
	if c.Server.KeyBits < pki.LeafKeyBits {
		errs = append(errs, fmt.Errorf("server.keyBits must be at least %d, got %d", pki.LeafKeyBits, c.Server.KeyBits))
	}
	if err := c.CA.Window.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ca.window: %w", err))
	}
	if err := c.Server.Window.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server.window: %w", err))
	}

	return errors.Join(errs...)
}

// Lifecycle converts the settings for use by lifecycle.New.
func (c *Config) Lifecycle() lifecycle.Config {
	return lifecycle.Config{
		Dir:         c.Dir,
		CustomSAN:   c.CustomSAN,
		Product:     c.Product,
		CAWindow:    c.CA.Window,
		LeafWindow:  c.Server.Window,
		CAKeyBits:   c.CA.KeyBits,
		LeafKeyBits: c.Server.KeyBits,
	}
}
