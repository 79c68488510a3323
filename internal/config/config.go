package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/tinymines/internal/mines"
)

type Duration struct{ time.Duration }

// [Duration] implements [json.Marshaler]
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil

	default:
		return errors.New("invalid duration")
	}
}

type GameConfig struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	MineCount int `json:"mine_count"`
	// MaxCells caps Width*Height of every game the server starts.
	MaxCells int `json:"max_cells"`
}

func (g GameConfig) Params() mines.GameParams {
	return mines.GameParams{
		Width:     g.Width,
		Height:    g.Height,
		MineCount: g.MineCount,
	}
}

type SessionConfig struct {
	TTL           Duration `json:"ttl"`
	SweepInterval Duration `json:"sweep_interval"`
}

type JwtConfig struct {
	Secret        string   `json:"secret"`
	SecretPath    string   `json:"secret_path"`
	TokenLifetime Duration `json:"token_lifetime"`
}

type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
}

type Config struct {
	Mode    string        `json:"mode"`
	Addr    string        `json:"addr"`
	Game    GameConfig    `json:"game"`
	Session SessionConfig `json:"session"`
	Jwt     JwtConfig     `json:"jwt"`
	Log     LogConfig     `json:"log"`
}

func Default() *Config {
	p := mines.DefaultParams
	return &Config{
		Mode: "development",
		Addr: ":8080",
		Game: GameConfig{
			Width:     p.Width,
			Height:    p.Height,
			MineCount: p.MineCount,
			MaxCells:  mines.MaxCells,
		},
		Session: SessionConfig{
			TTL:           Duration{time.Hour},
			SweepInterval: Duration{time.Minute},
		},
		Jwt: JwtConfig{
			TokenLifetime: Duration{time.Hour * 24},
		},
		Log: LogConfig{
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

func (c Config) Fields() logrus.Fields {
	return map[string]any{
		"mode":                   c.Mode,
		"addr":                   c.Addr,
		"game":                   c.Game.Params().Seed(),
		"game_max_cells":         c.Game.MaxCells,
		"session_ttl":            c.Session.TTL.String(),
		"session_sweep_interval": c.Session.SweepInterval.String(),
		"jwt_secret_set":         c.Jwt.Secret != "" || c.Jwt.SecretPath != "",
		"jwt_token_lifetime":     c.Jwt.TokenLifetime.String(),
		"log_file":               c.Log.File,
	}
}

func (c Config) Production() bool {
	return c.Mode == "production"
}

func (c Config) Development() bool {
	return c.Mode != "production"
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must be set")
	}
	if c.Game.MaxCells <= 0 {
		return errors.New("game max_cells must be positive")
	}
	if err := c.Game.Params().ValidateWithin(c.Game.MaxCells); err != nil {
		return fmt.Errorf("invalid game defaults: %w", err)
	}
	return nil
}

// ReadConfig overlays the JSON file at path on top of config.
func ReadConfig(path string, config *Config) error {
	if b, err := os.ReadFile(path); err != nil {
		return err
	} else {
		return json.Unmarshal(b, config)
	}
}

// Load reads defaults, the optional file at path and the environment,
// in that order.
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		if err := ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to read config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
