package state

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/goccy/go-yaml"
)

var ErrMissingField = errors.New("missing required config field")

// Config is the node-level configuration. It is immutable once the node has started.
type Config struct {
	RouterId  string   `yaml:"router_id"`
	Ip        string   `yaml:"ip"`
	Port      int      `yaml:"port"`
	Neighbors []string `yaml:"neighbors"`

	// intervals are expressed in seconds
	HelloInterval  float64 `yaml:"hello_interval"`
	UpdateInterval float64 `yaml:"update_interval"`
	CheckInterval  float64 `yaml:"check_interval"`

	PheromoneInit   float64 `yaml:"pheromone_init"`
	EvaporationRate float64 `yaml:"evaporation_rate"`
	Alpha           float64 `yaml:"alpha"`
	Beta            float64 `yaml:"beta"`
	Q               float64 `yaml:"q"`

	Probe         string  `yaml:"probe,omitempty"`           // exec or icmp
	ProbeTimeout  float64 `yaml:"probe_timeout,omitempty"`   // seconds before a probe reports unreachable
	ProbeCacheTTL float64 `yaml:"probe_cache_ttl,omitempty"` // seconds a probe result is reused, 0 disables caching

	Timezone    string `yaml:"timezone,omitempty"`     // zone used for event timestamps
	LogPath     string `yaml:"log_path,omitempty"`     // if not empty, a text log is also written to this file
	MetricsAddr string `yaml:"metrics_addr,omitempty"` // if not empty, metrics are served on this address
	MqttBroker  string `yaml:"mqtt_broker,omitempty"`  // if not empty, table snapshots are published to this broker
	MqttTopic   string `yaml:"mqtt_topic,omitempty"`
}

// required keys are tracked separately so that an explicit empty neighbor list is accepted
type presence struct {
	RouterId  *string   `yaml:"router_id"`
	Ip        *string   `yaml:"ip"`
	Port      *int      `yaml:"port"`
	Neighbors *[]string `yaml:"neighbors"`
}

func DefaultConfig() Config {
	return Config{
		HelloInterval:   DefaultHelloInterval,
		UpdateInterval:  DefaultUpdateInterval,
		CheckInterval:   DefaultCheckInterval,
		PheromoneInit:   DefaultPheromoneInit,
		EvaporationRate: DefaultEvaporationRate,
		Alpha:           DefaultAlpha,
		Beta:            DefaultBeta,
		Q:               DefaultQ,
		Probe:           "exec",
		ProbeTimeout:    DefaultProbeTimeout,
		ProbeCacheTTL:   DefaultProbeCacheTTL,
		Timezone:        DefaultTimezone,
	}
}

// ReadConfig loads the config file at path, then applies environment overrides and validates the result.
func ReadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(file, os.LookupEnv)
}

// ParseConfig decodes a YAML (or JSON) document on top of the defaults. Values returned by lookupEnv take precedence.
func ParseConfig(data []byte, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := DefaultConfig()
	var seen presence
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}
	if err := yaml.Unmarshal(data, &seen); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}
	if lookupEnv != nil {
		if err := applyEnv(&cfg, &seen, lookupEnv); err != nil {
			return nil, err
		}
	}

	switch {
	case seen.RouterId == nil:
		return nil, fmt.Errorf("%w: router_id", ErrMissingField)
	case seen.Ip == nil:
		return nil, fmt.Errorf("%w: ip", ErrMissingField)
	case seen.Port == nil:
		return nil, fmt.Errorf("%w: port", ErrMissingField)
	case seen.Neighbors == nil:
		return nil, fmt.Errorf("%w: neighbors", ErrMissingField)
	}
	if cfg.Neighbors == nil {
		cfg.Neighbors = make([]string, 0)
	}
	if cfg.MqttTopic == "" {
		cfg.MqttTopic = fmt.Sprintf("antnet/%s/tables", cfg.RouterId)
	}

	if err := ConfigValidator(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, seen *presence, lookupEnv func(string) (string, bool)) error {
	floats := []struct {
		env string
		dst *float64
	}{
		{"HELLO_INTERVAL", &cfg.HelloInterval},
		{"UPDATE_INTERVAL", &cfg.UpdateInterval},
		{"CHECK_INTERVAL", &cfg.CheckInterval},
		{"PHEROMONE_INIT", &cfg.PheromoneInit},
		{"EVAPORATION_RATE", &cfg.EvaporationRate},
		{"ALPHA", &cfg.Alpha},
		{"BETA", &cfg.Beta},
		{"Q", &cfg.Q},
		{"PROBE_TIMEOUT", &cfg.ProbeTimeout},
		{"PROBE_CACHE_TTL", &cfg.ProbeCacheTTL},
	}
	for _, f := range floats {
		v, ok := lookupEnv(f.env)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", f.env, err)
		}
		*f.dst = parsed
	}

	strs := []struct {
		env string
		dst *string
	}{
		{"PROBE", &cfg.Probe},
		{"TZ_NAME", &cfg.Timezone},
		{"LOG_PATH", &cfg.LogPath},
		{"METRICS_ADDR", &cfg.MetricsAddr},
		{"MQTT_BROKER", &cfg.MqttBroker},
		{"MQTT_TOPIC", &cfg.MqttTopic},
	}
	for _, s := range strs {
		if v, ok := lookupEnv(s.env); ok {
			*s.dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookupEnv("ROUTER_ID"); ok {
		cfg.RouterId = strings.TrimSpace(v)
		seen.RouterId = &cfg.RouterId
	}
	if v, ok := lookupEnv("IP"); ok {
		cfg.Ip = strings.TrimSpace(v)
		seen.Ip = &cfg.Ip
	}
	if v, ok := lookupEnv("PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid value for PORT: %w", err)
		}
		cfg.Port = port
		seen.Port = &cfg.Port
	}
	if v, ok := lookupEnv("NEIGHBORS"); ok {
		cfg.Neighbors = make([]string, 0)
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				cfg.Neighbors = append(cfg.Neighbors, n)
			}
		}
		seen.Neighbors = &cfg.Neighbors
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *Config) HelloDelay() time.Duration {
	return seconds(c.HelloInterval)
}

func (c *Config) UpdateDelay() time.Duration {
	return seconds(c.UpdateInterval)
}

func (c *Config) CheckDelay() time.Duration {
	return seconds(c.CheckInterval)
}

func (c *Config) ProbeTimeoutDelay() time.Duration {
	return seconds(c.ProbeTimeout)
}

func (c *Config) ProbeCacheDelay() time.Duration {
	return seconds(c.ProbeCacheTTL)
}

// BindAddr is the address the receiver listens on.
func (c *Config) BindAddr() string {
	return net.JoinHostPort(c.Ip, strconv.Itoa(c.Port))
}

// NeighborAddr is the address a neighbor receives datagrams on, the port is shared across the network.
func (c *Config) NeighborAddr(neighbor string) string {
	return net.JoinHostPort(neighbor, strconv.Itoa(c.Port))
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
