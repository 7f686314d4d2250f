// Package config provides configuration loading functionality.
package config

import (
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// DefaultPath is where Load looks for the playground configuration.
const DefaultPath = "playground_config.yml"

// Default returns the built-in configuration: plain TCP on loopback with
// a 5 second connection timeout and a 2 second ping period.
func Default() *Config {
	cfg := &Config{}
	cfg.Net.Host = "127.0.0.1"
	cfg.Net.ConnTimeout = 5
	cfg.Net.PingPeriod = 2
	cfg.Net.Transport = "tcp"
	return cfg
}

// Load loads the playground configuration from DefaultPath. A missing file
// is not an error: the playground must come up without ceremony, so the
// built-in defaults are used instead. For unrecoverable I/O errors it logs
// the error and exits the process.
func Load() *Config {
	return LoadPath(DefaultPath)
}

// LoadPath loads the configuration from the given path, filling unset
// fields from the defaults.
func LoadPath(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("%s not found: using default configuration", path)
			return Default()
		}
		log.WithError(err).Error("Cant read Config")
		os.Exit(1)
	}
	defer f.Close()

	config := Default()
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(config); err != nil {
		log.WithError(err).Error("Cant decode yaml")
		return Default()
	}
	applyDefaults(config)
	return config
}

// applyDefaults fills zero-valued fields a partial YAML file left unset.
func applyDefaults(cfg *Config) {
	if cfg.Net.Host == "" {
		cfg.Net.Host = "127.0.0.1"
	}
	if cfg.Net.ConnTimeout <= 0 {
		cfg.Net.ConnTimeout = 5
	}
	if cfg.Net.PingPeriod <= 0 {
		cfg.Net.PingPeriod = 2
	}
	if cfg.Net.Transport == "" {
		cfg.Net.Transport = "tcp"
	}
}

// WriteDefaultConfig writes a default playground_config.yml to the given path.
func WriteDefaultConfig(path string) error {
	cfg := Default()
	cfg.Net.DTLS.Certs.Mode = "self_signed"
	cfg.Net.DTLS.Security.ClientAuth = "no_client_cert"
	cfg.Net.DTLS.Security.ExtendedMasterSecret = "request"
	cfg.Net.DTLS.Tuning.MTU = 1200
	cfg.Net.DTLS.Tuning.ReplayProtectionWindow = 64

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := yaml.NewEncoder(f)
	defer encoder.Close()
	return encoder.Encode(cfg)
}
