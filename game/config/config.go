package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wricardo/hazardrun/game/engine"
	"github.com/wricardo/hazardrun/game/session"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const (
	MinIDLength = 4
	MaxIDLength = 8

	DefaultSubject = "hazardrun.events"
)

// Duration is a time.Duration that reads "4s" style strings or nanoseconds from JSON
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// Config is the complete server configuration
type Config struct {
	Server ServerConfig `json:"server"`
	Game   GameConfig   `json:"game"`
	Log    LogConfig    `json:"log"`
	NATS   NATSConfig   `json:"nats"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type GameConfig struct {
	MaxNameLength   int      `json:"max_name_length"`
	SessionIDLength int      `json:"session_id_length"`
	DrawDelay       Duration `json:"draw_delay"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "console" or "json"
}

// NATSConfig enables lifecycle event publishing when URL is set
type NATSConfig struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Game: GameConfig{
			MaxNameLength:   engine.DefaultNameSize,
			SessionIDLength: session.DefaultIDLength,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		NATS: NATSConfig{
			Subject: DefaultSubject,
		},
	}
}

// Load reads a JSON configuration file on top of the defaults. The result is
// not validated; callers apply their overrides and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Game.MaxNameLength < 1 {
		problems = append(problems, "game.max_name_length must be at least 1")
	}
	if c.Game.SessionIDLength < MinIDLength || c.Game.SessionIDLength > MaxIDLength {
		problems = append(problems, fmt.Sprintf("game.session_id_length must be %d-%d", MinIDLength, MaxIDLength))
	}
	if c.Game.DrawDelay < 0 {
		problems = append(problems, "game.draw_delay must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Rules converts the game section into engine rules
func (c *Config) Rules() engine.Rules {
	rules := engine.DefaultRules()
	rules.MaxNameLength = c.Game.MaxNameLength
	return rules
}

// DrawDelay returns the server-owned draw delay, zero when clients pace draws
func (c *Config) DrawDelay() time.Duration {
	return time.Duration(c.Game.DrawDelay)
}

// Addr returns host:port for the HTTP listener
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
