package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// Config holds every tunable of the race simulation. Engines and racers read it
// through a shared reference that is only ever swapped wholesale, never written
// in place.
type Config struct {
	TrackLength      float64 `yaml:"track_length"`
	NumRacers        int     `yaml:"num_racers"`
	PlayerControlled bool    `yaml:"player_controlled"`

	BaseSpeedMin    float64 `yaml:"base_speed_min"`
	BaseSpeedMax    float64 `yaml:"base_speed_max"`
	BoostSpeedBonus float64 `yaml:"boost_speed_bonus"`
	BoostDuration   int     `yaml:"boost_duration"`

	ShellHitSpeedPenalty  float64 `yaml:"shell_hit_speed_penalty"`
	ShellHitDuration      int     `yaml:"shell_hit_duration"`
	BananaHitSpeedPenalty float64 `yaml:"banana_hit_speed_penalty"`
	BananaHitDuration     int     `yaml:"banana_hit_duration"`

	ItemBoxSpacing       float64 `yaml:"item_box_spacing"`
	ItemChanceBoost      float64 `yaml:"item_chance_boost"`
	ItemChanceGreenShell float64 `yaml:"item_chance_green_shell"`
	ItemChanceRedShell   float64 `yaml:"item_chance_red_shell"`
	ItemChanceBanana     float64 `yaml:"item_chance_banana"`

	CatchUpAssistThreshold float64 `yaml:"catch_up_assist_threshold"`
	CatchUpItemBoostMult   float64 `yaml:"catch_up_item_boost_mult"`

	NemesisHitPenalty         int `yaml:"nemesis_hit_relationship_penalty"`
	NemesisOvertakePenalty    int `yaml:"nemesis_overtake_relationship_penalty"`
	NemesisFinishAheadPenalty int `yaml:"nemesis_finish_ahead_penalty"`
	NemesisTargetingThreshold int `yaml:"nemesis_targeting_threshold"`
	NemesisTraitThreshold     int `yaml:"nemesis_trait_threshold"`

	StepDelaySeconds float64 `yaml:"simulation_step_delay"`
}

func Default() Config {
	cfg := Config{
		TrackLength:      1000,
		NumRacers:        8,
		PlayerControlled: true,

		BaseSpeedMin:    8,
		BaseSpeedMax:    12,
		BoostSpeedBonus: 15,
		BoostDuration:   3,

		ShellHitSpeedPenalty:  -20,
		ShellHitDuration:      2,
		BananaHitSpeedPenalty: -15,
		BananaHitDuration:     3,

		ItemBoxSpacing:       200,
		ItemChanceBoost:      0.4,
		ItemChanceGreenShell: 0.3,
		ItemChanceRedShell:   0.2,
		ItemChanceBanana:     0.1,

		CatchUpAssistThreshold: 150,
		CatchUpItemBoostMult:   1.5,

		NemesisHitPenalty:         -3,
		NemesisOvertakePenalty:    -1,
		NemesisFinishAheadPenalty: -2,
		NemesisTargetingThreshold: -5,
		NemesisTraitThreshold:     3,

		StepDelaySeconds: 0.3,
	}
	cfg.NormalizeItemChances()
	return cfg
}

// Load reads a YAML file over the defaults, so partial files are fine.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.NormalizeItemChances()
	return cfg, nil
}

// NormalizeItemChances scales the four draw chances to sum to 1. Runtime
// overrides deliberately skip this, matching the catch-up skew semantics.
func (c *Config) NormalizeItemChances() {
	total := c.ItemChanceBoost + c.ItemChanceGreenShell + c.ItemChanceRedShell + c.ItemChanceBanana
	if total <= 0 {
		return
	}
	c.ItemChanceBoost /= total
	c.ItemChanceGreenShell /= total
	c.ItemChanceRedShell /= total
	c.ItemChanceBanana /= total
}

func (c *Config) Validate() error {
	switch {
	case c.TrackLength <= 0:
		return fmt.Errorf("%w: track_length must be positive", ErrInvalidValue)
	case c.NumRacers < 1:
		return fmt.Errorf("%w: num_racers must be at least 1", ErrInvalidValue)
	case c.BaseSpeedMin <= 0 || c.BaseSpeedMax < c.BaseSpeedMin:
		return fmt.Errorf("%w: base speed range must be positive and ordered", ErrInvalidValue)
	case c.ItemBoxSpacing <= 0:
		return fmt.Errorf("%w: item_box_spacing must be positive", ErrInvalidValue)
	case c.ItemChanceBoost < 0 || c.ItemChanceGreenShell < 0 || c.ItemChanceRedShell < 0 || c.ItemChanceBanana < 0:
		return fmt.Errorf("%w: item chances must not be negative", ErrInvalidValue)
	case c.ItemChanceBoost+c.ItemChanceGreenShell+c.ItemChanceRedShell+c.ItemChanceBanana <= 0:
		return fmt.Errorf("%w: item chances must not all be zero", ErrInvalidValue)
	}
	return nil
}

// Keys lists every settable key in declaration order, for console display.
func Keys() []string {
	return []string{
		"track_length",
		"num_racers",
		"player_controlled",
		"base_speed_min",
		"base_speed_max",
		"boost_speed_bonus",
		"boost_duration",
		"shell_hit_speed_penalty",
		"shell_hit_duration",
		"banana_hit_speed_penalty",
		"banana_hit_duration",
		"item_box_spacing",
		"item_chance_boost",
		"item_chance_green_shell",
		"item_chance_red_shell",
		"item_chance_banana",
		"catch_up_assist_threshold",
		"catch_up_item_boost_mult",
		"nemesis_hit_relationship_penalty",
		"nemesis_overtake_relationship_penalty",
		"nemesis_finish_ahead_penalty",
		"nemesis_targeting_threshold",
		"nemesis_trait_threshold",
		"simulation_step_delay",
	}
}

// Value formats the named field for display.
func (c *Config) Value(key string) (string, error) {
	f, i, b, kind, err := c.field(key)
	if err != nil {
		return "", err
	}
	switch kind {
	case kindFloat:
		return strconv.FormatFloat(*f, 'g', -1, 64), nil
	case kindInt:
		return strconv.Itoa(*i), nil
	default:
		return strconv.FormatBool(*b), nil
	}
}

// Set parses raw with the coercion of the field's own type. A parse failure
// leaves the prior value untouched.
func (c *Config) Set(key, raw string) error {
	f, i, b, kind, err := c.field(key)
	if err != nil {
		return err
	}
	switch kind {
	case kindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number, got %q", ErrInvalidValue, key, raw)
		}
		*f = v
	case kindInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidValue, key, raw)
		}
		*i = v
	default:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidValue, key, raw)
		}
		*b = v
	}
	return nil
}

type fieldKind int

const (
	kindFloat fieldKind = iota
	kindInt
	kindBool
)

func (c *Config) field(key string) (*float64, *int, *bool, fieldKind, error) {
	switch key {
	case "track_length":
		return &c.TrackLength, nil, nil, kindFloat, nil
	case "num_racers":
		return nil, &c.NumRacers, nil, kindInt, nil
	case "player_controlled":
		return nil, nil, &c.PlayerControlled, kindBool, nil
	case "base_speed_min":
		return &c.BaseSpeedMin, nil, nil, kindFloat, nil
	case "base_speed_max":
		return &c.BaseSpeedMax, nil, nil, kindFloat, nil
	case "boost_speed_bonus":
		return &c.BoostSpeedBonus, nil, nil, kindFloat, nil
	case "boost_duration":
		return nil, &c.BoostDuration, nil, kindInt, nil
	case "shell_hit_speed_penalty":
		return &c.ShellHitSpeedPenalty, nil, nil, kindFloat, nil
	case "shell_hit_duration":
		return nil, &c.ShellHitDuration, nil, kindInt, nil
	case "banana_hit_speed_penalty":
		return &c.BananaHitSpeedPenalty, nil, nil, kindFloat, nil
	case "banana_hit_duration":
		return nil, &c.BananaHitDuration, nil, kindInt, nil
	case "item_box_spacing":
		return &c.ItemBoxSpacing, nil, nil, kindFloat, nil
	case "item_chance_boost":
		return &c.ItemChanceBoost, nil, nil, kindFloat, nil
	case "item_chance_green_shell":
		return &c.ItemChanceGreenShell, nil, nil, kindFloat, nil
	case "item_chance_red_shell":
		return &c.ItemChanceRedShell, nil, nil, kindFloat, nil
	case "item_chance_banana":
		return &c.ItemChanceBanana, nil, nil, kindFloat, nil
	case "catch_up_assist_threshold":
		return &c.CatchUpAssistThreshold, nil, nil, kindFloat, nil
	case "catch_up_item_boost_mult":
		return &c.CatchUpItemBoostMult, nil, nil, kindFloat, nil
	case "nemesis_hit_relationship_penalty":
		return nil, &c.NemesisHitPenalty, nil, kindInt, nil
	case "nemesis_overtake_relationship_penalty":
		return nil, &c.NemesisOvertakePenalty, nil, kindInt, nil
	case "nemesis_finish_ahead_penalty":
		return nil, &c.NemesisFinishAheadPenalty, nil, kindInt, nil
	case "nemesis_targeting_threshold":
		return nil, &c.NemesisTargetingThreshold, nil, kindInt, nil
	case "nemesis_trait_threshold":
		return nil, &c.NemesisTraitThreshold, nil, kindInt, nil
	case "simulation_step_delay":
		return &c.StepDelaySeconds, nil, nil, kindFloat, nil
	}
	return nil, nil, nil, 0, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}
