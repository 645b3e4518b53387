package redis

import "time"

// Config contains Redis ephemeral tier settings.
type Config struct {
	Enabled          bool          `env:"REDIS_ENABLED"           envDefault:"true"`
	Addr             string        `env:"REDIS_ADDR"              envDefault:"localhost:6379"`
	Password         string        `env:"REDIS_PASSWORD"`
	DB               int           `env:"REDIS_DB"                envDefault:"0"`
	KeyPrefix        string        `env:"REDIS_KEY_PREFIX"        envDefault:"kiln:"`
	ProbeTimeout     time.Duration `env:"REDIS_PROBE_TIMEOUT"     envDefault:"500ms"`
	DialTimeout      time.Duration `env:"REDIS_DIAL_TIMEOUT"      envDefault:"1s"`
	CompressionLevel int           `env:"REDIS_COMPRESSION_LEVEL" envDefault:"0"`
}
