package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chanceSum(c Config) float64 {
	return c.ItemChanceBoost + c.ItemChanceGreenShell + c.ItemChanceRedShell + c.ItemChanceBanana
}

func TestDefaultChancesNormalized(t *testing.T) {
	cfg := Default()
	assert.InDelta(t, 1.0, chanceSum(cfg), 1e-9)
}

func TestSetCoercesByFieldType(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("track_length", "1500"))
	assert.Equal(t, 1500.0, cfg.TrackLength)

	require.NoError(t, cfg.Set("num_racers", "4"))
	assert.Equal(t, 4, cfg.NumRacers)

	require.NoError(t, cfg.Set("player_controlled", "false"))
	assert.False(t, cfg.PlayerControlled)

	v, err := cfg.Value("track_length")
	require.NoError(t, err)
	assert.Equal(t, "1500", v)
}

func TestSetRejectsMismatchedTypes(t *testing.T) {
	cfg := Default()

	err := cfg.Set("num_racers", "lots")
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, 8, cfg.NumRacers, "prior value must survive a bad write")

	err = cfg.Set("track_length", "far")
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, 1000.0, cfg.TrackLength)

	err = cfg.Set("player_controlled", "maybe")
	assert.ErrorIs(t, err, ErrInvalidValue)

	err = cfg.Set("warp_drive", "1")
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = cfg.Value("warp_drive")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestKeysCoverEveryField(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		_, err := cfg.Value(key)
		require.NoError(t, err, key)
		v, _ := cfg.Value(key)
		require.NoError(t, cfg.Set(key, v), key)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.yaml")
	body := "track_length: 500\nnum_racers: 4\nitem_chance_boost: 1\nitem_chance_green_shell: 1\nitem_chance_red_shell: 1\nitem_chance_banana: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.TrackLength)
	assert.Equal(t, 4, cfg.NumRacers)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.BoostDuration)
	// Chances renormalize to equal quarters.
	assert.InDelta(t, 0.25, cfg.ItemChanceBoost, 1e-9)
	assert.InDelta(t, 1.0, chanceSum(cfg), 1e-9)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.yaml")
	require.NoError(t, os.WriteFile(path, []byte("num_racers: 0\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
