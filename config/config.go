// Package config loads the settings of the teamlink CLI and dev server. Values
// come from an optional YAML file, then an optional .env file, then the
// process environment, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvAPIURL      = "TEAMLINK_API_URL"
	EnvTimeout     = "TEAMLINK_TIMEOUT"
	EnvRedisURL    = "TEAMLINK_REDIS_URL"
	EnvProfile     = "TEAMLINK_PROFILE"
	EnvSessionTTL  = "TEAMLINK_SESSION_TTL"
	EnvSessionFile = "TEAMLINK_SESSION_FILE"
	EnvDevAddr     = "TEAMLINK_DEV_ADDR"
	EnvDevSecret   = "TEAMLINK_DEV_SECRET"
	EnvDedupeTTL   = "TEAMLINK_DEDUPE_TTL"
	EnvDebug       = "DEBUG"
)

type API struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Session struct {
	Profile string `yaml:"profile"`
	// RedisURL selects the Redis session store. When empty the session is
	// kept in File.
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
	File     string        `yaml:"file"`
}

type DevServer struct {
	Addr      string        `yaml:"addr"`
	Secret    string        `yaml:"secret"`
	DedupeTTL time.Duration `yaml:"dedupe_ttl"`
}

// Config is the full configuration.
type Config struct {
	API       API       `yaml:"api"`
	Session   Session   `yaml:"session"`
	DevServer DevServer `yaml:"devserver"`
	Debug     bool      `yaml:"debug"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		API:       API{URL: "http://localhost:8000/api", Timeout: 15 * time.Second},
		Session:   Session{Profile: "default"},
		DevServer: DevServer{Addr: "127.0.0.1:8000", Secret: "teamlink-dev-secret", DedupeTTL: 10 * time.Minute},
	}
}

// Load builds the configuration. path names a YAML file and envFile a .env
// file; either may be empty. A missing .env file is ignored, a missing YAML
// file is not.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		var err error
		dotenv, err = godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(lookup(dotenv)); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// lookup reads the process environment first and the .env values second.
// Empty values count as unset.
func lookup(dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v, true
		}
		if v := strings.TrimSpace(dotenv[key]); v != "" {
			return v, true
		}
		return "", false
	}
}

func (c *Config) applyEnv(get func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str(EnvAPIURL, &c.API.URL)
	dur(EnvTimeout, &c.API.Timeout)
	str(EnvRedisURL, &c.Session.RedisURL)
	str(EnvProfile, &c.Session.Profile)
	dur(EnvSessionTTL, &c.Session.TTL)
	str(EnvSessionFile, &c.Session.File)
	str(EnvDevAddr, &c.DevServer.Addr)
	str(EnvDevSecret, &c.DevServer.Secret)
	dur(EnvDedupeTTL, &c.DevServer.DedupeTTL)
	if v, ok := get(EnvDebug); ok {
		dbg, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", EnvDebug, err))
		} else {
			c.Debug = dbg
		}
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.API.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api url %q must be an absolute http(s) URL", c.API.URL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be greater than 0"))
	}
	if strings.TrimSpace(c.Session.Profile) == "" {
		errs = append(errs, errors.New("session profile must not be empty"))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, errors.New("session ttl must not be negative"))
	}
	if c.DevServer.Addr == "" {
		errs = append(errs, errors.New("devserver addr must not be empty"))
	}
	if c.DevServer.Secret == "" {
		errs = append(errs, errors.New("devserver secret must not be empty"))
	}
	if c.DevServer.DedupeTTL < 0 {
		errs = append(errs, errors.New("devserver dedupe ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// SessionFile returns the file the session is kept in, defaulting to a
// per-profile file under the user config directory.
func (c Config) SessionFile() (string, error) {
	if c.Session.File != "" {
		return c.Session.File, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "teamlink", "session-"+c.Session.Profile+".json"), nil
}
