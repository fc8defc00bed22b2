package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAddress     = "localhost:8080"
	DefaultGameAddress = "https://fabricadejogos.portaleducacional.tec.br"
	DefaultPortalPath  = "/api/game-objects"
)

type Database struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Dbname   string `json:"dbname"`
	Sslmode  string `json:"sslmode"`
}

// String returns the DSN, building a postgres keyword/value string when no
// explicit DSN was configured.
func (d Database) String() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Dbname, d.Sslmode)
}

type Portal struct {
	URL     string   `json:"url"`
	Path    string   `json:"path"`
	Timeout Duration `json:"timeout"`
}

type Handshake struct {
	Delay   Duration `json:"delay"`
	Timeout Duration `json:"timeout"`
	Format  string   `json:"format"`
}

type Config struct {
	Address        string    `json:"address"`
	Database       Database  `json:"database"`
	GameAddress    string    `json:"game_address"`
	TokenSecret    string    `json:"token_secret"`
	Portal         Portal    `json:"portal"`
	Handshake      Handshake `json:"handshake"`
	FrameAncestors []string  `json:"frame_ancestors"`
	AllowedOrigins []string  `json:"allowed_origins"`
	LogLevel       string    `json:"log_level"`
}

// Duration decodes from a Go duration string such as "1s" or "250ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func Default() *Config {
	return &Config{
		Address: DefaultAddress,
		Database: Database{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Dbname:  "fabrica",
			Sslmode: "disable",
		},
		GameAddress: DefaultGameAddress,
		Portal: Portal{
			Path:    DefaultPortalPath,
			Timeout: Duration(10 * time.Second),
		},
		Handshake: Handshake{
			Delay:  Duration(time.Second),
			Format: "legacy",
		},
		FrameAncestors: []string{},
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
	}
}

// Load reads the JSON config at path on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config read error: %w", err)
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config parse error: %w", err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FABRICA_ADDRESS"); v != "" {
		c.Address = v
	} else if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("config env error: invalid PORT %q", v)
		}
		c.Address = ":" + strconv.Itoa(port)
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("GAME_ADDRESS"); v != "" {
		c.GameAddress = v
	}
	if v := os.Getenv("TOKEN_SECRET"); v != "" {
		c.TokenSecret = v
	}
	if v := os.Getenv("PORTAL_URL"); v != "" {
		c.Portal.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config error: unsupported database driver %q", c.Database.Driver)
	}
	switch c.Handshake.Format {
	case "envelope", "legacy":
	default:
		return fmt.Errorf("config error: unsupported handshake format %q", c.Handshake.Format)
	}
	if c.Handshake.Delay < 0 || c.Handshake.Timeout < 0 {
		return fmt.Errorf("config error: handshake durations must not be negative")
	}
	c.GameAddress = strings.TrimSuffix(c.GameAddress, "/")
	if c.Portal.Path == "" {
		c.Portal.Path = DefaultPortalPath
	}
	return nil
}
