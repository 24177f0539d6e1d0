package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := FromLookup(lookup(nil))
	assert.Equal(t, 3, cfg.GetInt(EnvColumns, 3))
	assert.Equal(t, ":2000", cfg.GetString(EnvAddr, ":2000"))
	assert.Equal(t, 150.0, cfg.GetFloat(EnvDPI, 150))
	assert.Equal(t, time.Duration(0), cfg.GetDuration(EnvSettleDelay, 0))
	assert.Equal(t, []string{"Name"}, cfg.GetStrings(EnvHeaders, []string{"Name"}))
}

func TestConfigValues(t *testing.T) {
	cfg := FromLookup(lookup(map[string]string{
		EnvColumns:     "2",
		EnvRows:        "not a number",
		EnvDPI:         "96.5",
		EnvSettleDelay: "120ms",
		EnvHeaders:     " Name , ,SKU",
		"UNRELATED":    "x",
	}))
	assert.Equal(t, 2, cfg.GetInt(EnvColumns, 3))
	assert.Equal(t, 8, cfg.GetInt(EnvRows, 8), "unparsable values use the default")
	assert.Equal(t, 96.5, cfg.GetFloat(EnvDPI, 150))
	assert.Equal(t, 120*time.Millisecond, cfg.GetDuration(EnvSettleDelay, 0))
	assert.Equal(t, []string{"Name", "SKU"}, cfg.GetStrings(EnvHeaders, nil))
	assert.Equal(t, "", cfg.GetString("UNRELATED", ""))
}

func TestConfigEmptyHeaderList(t *testing.T) {
	cfg := FromLookup(lookup(map[string]string{EnvHeaders: " , "}))
	assert.Equal(t, []string{"Name"}, cfg.GetStrings(EnvHeaders, []string{"Name"}))
}
