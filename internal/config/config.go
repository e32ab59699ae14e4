// Package config loads config.toml into a typed Config with defaults
// applied before decode, so every field is optional on disk.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	MaxWSConnections  int    `toml:"max_ws_connections"`
}

type RiskConfig struct {
	MinOrderSize         int64   `toml:"min_order_size"`
	MaxOrderSize         int64   `toml:"max_order_size"`
	PriceBandPercent     float64 `toml:"price_band_percent"`
	MaxPositionPerTrader int64   `toml:"max_position_per_trader"`
	MaxOrdersPerSecond   float64 `toml:"max_orders_per_second"`
}

type RateLimitConfig struct {
	BucketTTLSeconds int `toml:"bucket_ttl_seconds"`
}

type BroadcastConfig struct {
	BufferSize int `toml:"buffer_size"`
}

// Config is the full process configuration, decoded from config.toml.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Risk      RiskConfig      `toml:"risk"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Broadcast BroadcastConfig `toml:"broadcast"`

	// LogJSON selects JSON log output; driven from RUST_LOG_JSON, not
	// from the TOML file, since it is an external environment contract.
	LogJSON bool `toml:"-"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			MaxWSConnections: 100,
		},
		Risk: RiskConfig{
			MinOrderSize:         1,
			MaxOrderSize:         1_000_000,
			PriceBandPercent:     10,
			MaxPositionPerTrader: 1_000_000,
			MaxOrdersPerSecond:   50,
		},
		RateLimit: RateLimitConfig{
			BucketTTLSeconds: 600,
		},
		Broadcast: BroadcastConfig{
			BufferSize: 256,
		},
	}
}

// Load reads path if it exists, decoding onto a default-populated
// Config so every field is optional; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.LogJSON = logJSONFromEnv()
			return cfg, nil
		}
		return Config{}, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	cfg.LogJSON = logJSONFromEnv()
	return cfg, nil
}

func logJSONFromEnv() bool {
	return os.Getenv("RUST_LOG_JSON") == "1"
}
