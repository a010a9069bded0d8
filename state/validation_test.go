package state

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameValidator_Valid(t *testing.T) {
	assert.NoError(t, NameValidator("1"))
	assert.NoError(t, NameValidator("ab_cd"))
	assert.NoError(t, NameValidator("abcd-a.com"))
}

func TestNameValidator_Invalid(t *testing.T) {
	assert.Error(t, NameValidator("1A"))
	assert.Error(t, NameValidator("node name"))
	assert.Error(t, NameValidator(""))
	assert.Error(t, NameValidator("\t"))
	assert.Error(t, NameValidator("abcd-a.com\\hi"))
	assert.Error(t, NameValidator(strings.Repeat("a", 200)))
}

func TestHostValidator(t *testing.T) {
	assert.NoError(t, HostValidator("10.0.0.1"))
	assert.NoError(t, HostValidator("fd00::1"))
	assert.NoError(t, HostValidator("router-2.lan"))
	assert.Error(t, HostValidator(""))
	assert.Error(t, HostValidator("not a host"))
	assert.Error(t, HostValidator("-c100000"))
	assert.Error(t, HostValidator("-f"))
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.RouterId = "r1"
	cfg.Ip = "10.0.0.1"
	cfg.Port = 5000
	cfg.Neighbors = []string{"10.0.0.2", "10.0.0.3"}
	return cfg
}

func TestConfigValidator_Valid(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, ConfigValidator(&cfg))

	cfg.Neighbors = []string{}
	assert.NoError(t, ConfigValidator(&cfg))
}

func TestConfigValidator_Invalid(t *testing.T) {
	cases := map[string]func(*Config){
		"bad router id":      func(c *Config) { c.RouterId = "Router One" },
		"port zero":          func(c *Config) { c.Port = 0 },
		"port too large":     func(c *Config) { c.Port = 70000 },
		"duplicate neighbor": func(c *Config) { c.Neighbors = append(c.Neighbors, "10.0.0.2") },
		"bad neighbor":       func(c *Config) { c.Neighbors = []string{"?"} },
		"zero hello":         func(c *Config) { c.HelloInterval = 0 },
		"negative check":     func(c *Config) { c.CheckInterval = -1 },
		"sub-ns hello":       func(c *Config) { c.HelloInterval = 1e-10 },
		"infinite hello":     func(c *Config) { c.HelloInterval = math.Inf(1) },
		"overflowing update": func(c *Config) { c.UpdateInterval = 1e300 },
		"infinite timeout":   func(c *Config) { c.ProbeTimeout = math.Inf(1) },
		"huge cache ttl":     func(c *Config) { c.ProbeCacheTTL = 1e300 },
		"dash neighbor":      func(c *Config) { c.Neighbors = []string{"-f"} },
		"negative alpha":     func(c *Config) { c.Alpha = -1 },
		"negative q":         func(c *Config) { c.Q = -5 },
		"init too large":     func(c *Config) { c.PheromoneInit = 2000 },
		"evaporation above":  func(c *Config) { c.EvaporationRate = 1.5 },
		"unknown probe":      func(c *Config) { c.Probe = "tcp" },
		"unknown timezone":   func(c *Config) { c.Timezone = "Mars/Olympus" },
		"bad metrics addr":   func(c *Config) { c.MetricsAddr = "9090" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, ConfigValidator(&cfg))
		})
	}
}

func TestConfigValidator_DuplicateNeighbor(t *testing.T) {
	cfg := validConfig()
	cfg.Neighbors = []string{"10.0.0.2", "10.0.0.2"}
	assert.ErrorContains(t, ConfigValidator(&cfg), "duplicate neighbor found")
}

func TestConfigValidator_TinyInterval(t *testing.T) {
	cfg := validConfig()
	cfg.HelloInterval = 1e-6
	assert.NoError(t, ConfigValidator(&cfg))
	assert.Positive(t, cfg.HelloDelay())
}
