// Package config provides environment-driven configuration for blockfall.
package config

// Config holds the runtime settings for the daemon. Values are read from
// environment variables with sensible defaults; precedence is ENV > default.
type Config struct {
	Listen       string // HTTP listen address
	DataDir      string // directory for the embedded store
	StoreBackend string // "badger" or "memory"
	LogLevel     string // zerolog level name
	Metrics      bool   // expose /metrics
}

// FromEnv assembles a Config from the BLOCKFALL_* environment variables.
func FromEnv() Config {
	return Config{
		Listen:       ParseString("BLOCKFALL_LISTEN", ":8080"),
		DataDir:      ParseString("BLOCKFALL_DATA_DIR", "/var/lib/blockfall"),
		StoreBackend: ParseString("BLOCKFALL_STORE", "badger"),
		LogLevel:     ParseString("BLOCKFALL_LOG_LEVEL", "info"),
		Metrics:      ParseBool("BLOCKFALL_METRICS", true),
	}
}
