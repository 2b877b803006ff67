// Package config loads the squat-coach TOML configuration.
package config

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"github.com/sweeney/squat-coach/internal/logic"
)

type Band [2]float64

type Thresholds struct {
	Normal Band       `toml:"normal"`
	Trans  Band       `toml:"trans"`
	Pass   Band       `toml:"pass"`
	Hip    Band       `toml:"hip"`
	Ankle  float64    `toml:"ankle"`
	Knee   [3]float64 `toml:"knee"`
}

type Session struct {
	SuccessAfter int `toml:"success_after"`
	MaxAttempts  int `toml:"max_attempts"`
}

type Log struct {
	Level  string `toml:"level"`
	File   string `toml:"file"`
	Stdout bool   `toml:"stdout"`
	JSON   bool   `toml:"json"`
}

type Config struct {
	Thresholds Thresholds `toml:"thresholds"`
	Session    Session    `toml:"session"`
	Log        Log        `toml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	th := logic.DefaultThresholds()
	p := logic.DefaultSessionPolicy()
	return Config{
		Thresholds: Thresholds{
			Normal: Band{th.Normal.Min, th.Normal.Max},
			Trans:  Band{th.Trans.Min, th.Trans.Max},
			Pass:   Band{th.Pass.Min, th.Pass.Max},
			Hip:    Band{th.Hip.Min, th.Hip.Max},
			Ankle:  th.Ankle,
			Knee:   th.Knee,
		},
		Session: Session{
			SuccessAfter: p.SuccessAfter,
			MaxAttempts:  p.MaxAttempts,
		},
		Log: Log{Level: "info", Stdout: true},
	}
}

// Load reads path over the defaults. An empty path returns Default().
// Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("decode %s: unknown keys %v", path, undecoded)
	}
	if err := cfg.LogicThresholds().Validate(); err != nil {
		return Config{}, fmt.Errorf("thresholds: %w", err)
	}
	return cfg, nil
}

// LogicThresholds converts the configured thresholds for the tracker.
func (c Config) LogicThresholds() logic.Thresholds {
	t := c.Thresholds
	return logic.Thresholds{
		Normal: logic.Band{Min: t.Normal[0], Max: t.Normal[1]},
		Trans:  logic.Band{Min: t.Trans[0], Max: t.Trans[1]},
		Pass:   logic.Band{Min: t.Pass[0], Max: t.Pass[1]},
		Hip:    logic.Band{Min: t.Hip[0], Max: t.Hip[1]},
		Ankle:  t.Ankle,
		Knee:   t.Knee,
	}
}

// SessionPolicy converts the configured session limits.
func (c Config) SessionPolicy() logic.SessionPolicy {
	return logic.SessionPolicy{
		SuccessAfter: c.Session.SuccessAfter,
		MaxAttempts:  c.Session.MaxAttempts,
	}
}

// Write encodes c as TOML in the format Load reads.
func (c Config) Write(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
