// Package config loads snip's optional TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.followtheprocess.codes/snip/internal/model"
	"go.followtheprocess.codes/snip/internal/send"
)

// Environment variables overriding the config file.
const (
	// EnvConfig overrides the config file path.
	EnvConfig = "SNIP_CONFIG"

	// EnvDatabase overrides the database path.
	EnvDatabase = "SNIP_DATABASE"
)

const appName = "snip"

// Config is the contents of the config file.
type Config struct {
	// Proxy, if set, is used for every request sent
	Proxy *model.ProxySetting `toml:"proxy"`

	// Database is the path to the SQLite database holding settings and saved requests
	Database string `toml:"database"`

	// HARDir is where HAR files are saved
	HARDir string `toml:"har_dir"`

	// Creator is the creator name written to HAR files
	Creator string `toml:"creator"`

	// DNS lists DNS servers to use instead of the system resolver
	DNS []string `toml:"dns"`

	// IgnoreHTTPSErrors lists hosts whose TLS errors are ignored
	IgnoreHTTPSErrors []string `toml:"ignore_https_errors"`

	// Timeout is the overall per-request timeout
	Timeout time.Duration `toml:"timeout"`

	// ConnectionTimeout is the per-request connection timeout
	ConnectionTimeout time.Duration `toml:"connection_timeout"`
}

// Default returns the configuration used when there is no config file.
func Default() Config {
	dir := "."
	if configDir, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(configDir, appName)
	}

	return Config{
		Database:          filepath.Join(dir, appName+".db"),
		HARDir:            ".",
		Creator:           appName,
		Timeout:           send.DefaultTimeout,
		ConnectionTimeout: send.DefaultConnectionTimeout,
	}
}

// Path returns the default location of the config file, $SNIP_CONFIG if set,
// otherwise config.toml in the user's config directory e.g. $XDG_CONFIG_HOME/snip.
func Path() (string, error) {
	if path := os.Getenv(EnvConfig); path != "" {
		return path, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not locate config directory: %w", err)
	}

	return filepath.Join(configDir, appName, "config.toml"), nil
}

// Load reads the config file at path, or at [Path] if path is empty.
//
// A missing file is not an error, the defaults are returned. Keys in the file
// that aren't recognised are an error. $SNIP_DATABASE takes precedence over the
// file's database setting.
func Load(path string) (Config, error) {
	explicit := path != ""

	if !explicit {
		var err error

		path, err = Path()
		if err != nil {
			return Config{}, err
		}
	}

	cfg := Default()

	meta, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Fine, the config file is optional
	case err != nil:
		return Config{}, fmt.Errorf("could not load config file %s: %w", path, err)
	default:
		if undecoded := meta.Undecoded(); len(undecoded) != 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}

			return Config{}, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if database := os.Getenv(EnvDatabase); database != "" {
		cfg.Database = database
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports whether the config is valid, returning a non-nil error if not.
func (c Config) Validate() error {
	switch {
	case c.Database == "":
		return errors.New("database cannot be empty")
	case c.Timeout <= 0:
		return errors.New("timeout must be positive")
	case c.ConnectionTimeout <= 0:
		return errors.New("connection_timeout must be positive")
	case c.ConnectionTimeout > c.Timeout:
		return fmt.Errorf("connection_timeout (%s) cannot be larger than timeout (%s)", c.ConnectionTimeout, c.Timeout)
	}

	if c.Proxy != nil {
		u, err := url.Parse(c.Proxy.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("proxy url %q must be an absolute URL", c.Proxy.ProxyURL)
		}
	}

	return nil
}

// RequestOptions returns the request options the config describes.
func (c Config) RequestOptions() model.RequestOptions {
	options := model.RequestOptions{
		IgnoreHostHTTPSErrors: model.HTTPSErrorPolicy{Hosts: c.IgnoreHTTPSErrors},
		LookupOptions:         model.LookupOptions{Servers: c.DNS},
	}

	if c.Proxy != nil {
		options.ProxyConfig = *c.Proxy
	}

	return options
}
