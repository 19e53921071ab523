// Package config loads the process-wide environment configuration (spec
// §6): PORT, BIND, and the GTOTRAINER_FEATURES flag set. No other
// configuration is read at startup.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the resolved environment configuration for cmd/server and
// cmd/bench.
type Config struct {
	Port     string
	Bind     string
	Features map[string]bool
}

// Load reads an optional .env file (teacher's own bootstrap pattern: missing
// .env is not an error) then resolves PORT/BIND/GTOTRAINER_FEATURES from the
// environment.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:     getenv("PORT", "8080"),
		Bind:     getenv("BIND", "0.0.0.0"),
		Features: parseFeatures(os.Getenv("GTOTRAINER_FEATURES")),
	}
}

// HasFeature reports whether name (case-insensitive) is present in
// GTOTRAINER_FEATURES.
func (c Config) HasFeature(name string) bool {
	return c.Features[strings.ToLower(strings.TrimSpace(name))]
}

func parseFeatures(raw string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.Split(raw, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out[f] = true
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// AtoiDef exposes the teacher's atoiDef helper for callers outside this
// package.
func AtoiDef(s string, def int) int { return atoiDef(s, def) }
