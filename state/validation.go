package state

import (
	"fmt"
	"math"
	"net"
	"regexp"
	"slices"
	"strings"
	"time"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func BindValidator(s string) error {
	_, _, err := net.SplitHostPort(s)
	return err
}

func HostValidator(s string) error {
	if s == "" {
		return fmt.Errorf("host must not be empty")
	}
	if net.ParseIP(s) != nil {
		return nil
	}
	// hosts end up as arguments of the ping command
	if strings.HasPrefix(s, "-") {
		return fmt.Errorf("host %q must not start with a dash", s)
	}
	// hostnames are resolved by the transport, only reject obviously malformed ones
	return NameValidator(s)
}

func intervalValidator(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 {
		return fmt.Errorf("%s must be a positive number of seconds, got %v", name, v)
	}
	if math.IsInf(v, 1) || v > float64(math.MaxInt64)/float64(time.Second) {
		return fmt.Errorf("%s is too large, got %v", name, v)
	}
	// sub-nanosecond intervals truncate to a zero duration
	if seconds(v) <= 0 {
		return fmt.Errorf("%s must be at least 1ns, got %v", name, v)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%s must be a finite non-negative number, got %v", name, v)
	}
	return nil
}

func ConfigValidator(cfg *Config) error {
	if err := NameValidator(cfg.RouterId); err != nil {
		return fmt.Errorf("router_id: %w", err)
	}
	if err := HostValidator(cfg.Ip); err != nil {
		return fmt.Errorf("ip: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is out of range", cfg.Port)
	}
	if err := BindValidator(cfg.BindAddr()); err != nil {
		return err
	}
	for i, n := range cfg.Neighbors {
		if err := HostValidator(n); err != nil {
			return fmt.Errorf("neighbors[%d]: %w", i, err)
		}
		if slices.Contains(cfg.Neighbors[:i], n) {
			return fmt.Errorf("duplicate neighbor found: %s", n)
		}
	}
	for _, iv := range []struct {
		name string
		v    float64
	}{
		{"hello_interval", cfg.HelloInterval},
		{"update_interval", cfg.UpdateInterval},
		{"check_interval", cfg.CheckInterval},
		{"probe_timeout", cfg.ProbeTimeout},
	} {
		if err := intervalValidator(iv.name, iv.v); err != nil {
			return err
		}
	}
	for _, nv := range []struct {
		name string
		v    float64
	}{
		{"pheromone_init", cfg.PheromoneInit},
		{"alpha", cfg.Alpha},
		{"beta", cfg.Beta},
		{"q", cfg.Q},
		{"probe_cache_ttl", cfg.ProbeCacheTTL},
	} {
		if err := nonNegative(nv.name, nv.v); err != nil {
			return err
		}
	}
	if cfg.ProbeCacheTTL > 0 {
		if err := intervalValidator("probe_cache_ttl", cfg.ProbeCacheTTL); err != nil {
			return err
		}
	}
	if cfg.PheromoneInit > MaxPheromone {
		return fmt.Errorf("pheromone_init must not exceed %v", MaxPheromone)
	}
	if math.IsNaN(cfg.EvaporationRate) || cfg.EvaporationRate < 0 || cfg.EvaporationRate > 1 {
		return fmt.Errorf("evaporation_rate must be within [0, 1], got %v", cfg.EvaporationRate)
	}
	switch cfg.Probe {
	case "exec", "icmp":
	default:
		return fmt.Errorf("unknown probe %q, expected exec or icmp", cfg.Probe)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if cfg.MetricsAddr != "" {
		if err := BindValidator(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("metrics_addr: %w", err)
		}
	}
	return nil
}
