// Package config provides a type-safe, generic and cached way to load
// application configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11 to
// deliver a convenient API that:
//
//   - Loads values from a .env file in the current working directory when
//     one exists.
//   - Parses the environment into any Go struct using field tags.
//   - Caches each successfully loaded configuration type so it is only
//     parsed once for the lifetime of the process.
//   - Exposes MustLoad for configurations the process cannot run without.
//
// # Architecture
//
// Internally the package keeps a singleton cache that stores parsed struct
// copies keyed by their type name. Each key also holds a sync.Once
// guaranteeing the parsing work executes at most once per configuration type
// even when accessed from multiple goroutines concurrently.
//
// # Usage
//
// Annotate a struct with env tags and load it once at startup:
//
//	type StoreConfig struct {
//		SnapshotDir string `env:"SNAPSHOT_DIR" envDefault:"./snapshots"`
//		RedisURL    string `env:"REDIS_URL"`
//	}
//
//	var cfg StoreConfig
//	config.MustLoad(&cfg)
package config
