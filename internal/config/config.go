package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	rediscache "github.com/davidbz/kiln/internal/cache/redis"
	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/ledger"
	"github.com/davidbz/kiln/internal/observability"
	"github.com/davidbz/kiln/internal/provider/google"
	"github.com/davidbz/kiln/internal/provider/openai"
	"github.com/davidbz/kiln/internal/provider/ratelimit"
	"github.com/davidbz/kiln/internal/storage"
)

// Config represents the generation cache configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Log       observability.Config
	OpenAI    openai.Config
	Google    google.Config
	Redis     rediscache.Config
	Storage   storage.Config
	Cache     CacheConfig
	Voices    VoicesConfig
	RateLimit ratelimit.Config
	Ledger    ledger.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"120"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// CacheConfig contains namespace versions, TTLs and per-tier timeouts.
type CacheConfig struct {
	SpeechVersion    string `env:"CACHE_TTS_VERSION"        envDefault:"v1"`
	DialogueVersion  string `env:"CACHE_DIALOGUE_VERSION"   envDefault:"v1"`
	TurnAudioVersion string `env:"CACHE_TURN_AUDIO_VERSION" envDefault:"v1"`

	AudioTTL time.Duration `env:"CACHE_AUDIO_TTL" envDefault:"720h"`
	TextTTL  time.Duration `env:"CACHE_TEXT_TTL"  envDefault:"24h"`

	EphemeralTimeout  time.Duration `env:"CACHE_EPHEMERAL_TIMEOUT"  envDefault:"200ms"`
	DurableTimeout    time.Duration `env:"CACHE_DURABLE_TIMEOUT"    envDefault:"10s"`
	GenerationTimeout time.Duration `env:"CACHE_GENERATION_TIMEOUT" envDefault:"90s"`

	TurnConcurrency      int           `env:"CACHE_TURN_CONCURRENCY"       envDefault:"4"`
	MetricsResetInterval time.Duration `env:"CACHE_METRICS_RESET_INTERVAL" envDefault:"0s"`
	ReconcileInterval    time.Duration `env:"CACHE_RECONCILE_INTERVAL"     envDefault:"5m"`
}

// VoicesConfig controls voice resolution.
type VoicesConfig struct {
	// DefaultBackend serves voice identifiers without a "backend:" prefix.
	// Empty selects openai when configured and echo otherwise.
	DefaultBackend string `env:"VOICE_DEFAULT_BACKEND"`
}

// DepConfig is used for dependency injection with dig.
// dig keys each field by its type, and the Config types from different
// packages are distinct types.
type DepConfig struct {
	dig.Out
	Server    *ServerConfig
	CORS      *CORSConfig
	Cache     *CacheConfig
	Voices    *VoicesConfig
	Log       *observability.Config
	OpenAI    *openai.Config
	Google    *google.Config
	Redis     *rediscache.Config
	Storage   *storage.Config
	RateLimit *ratelimit.Config
	Ledger    *ledger.Config
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Out:       dig.Out{},
		Server:    &cfg.Server,
		CORS:      &cfg.CORS,
		Cache:     &cfg.Cache,
		Voices:    &cfg.Voices,
		Log:       &cfg.Log,
		OpenAI:    &cfg.OpenAI,
		Google:    &cfg.Google,
		Redis:     &cfg.Redis,
		Storage:   &cfg.Storage,
		RateLimit: &cfg.RateLimit,
		Ledger:    &cfg.Ledger,
	}
}

// OrchestratorConfig maps cache settings to orchestrator policies.
// Audio namespaces share the audio TTL, the dialogue namespace uses the text TTL.
func (c *CacheConfig) OrchestratorConfig() domain.OrchestratorConfig {
	return domain.OrchestratorConfig{
		Policies: map[domain.Namespace]domain.NamespacePolicy{
			domain.NamespaceSpeech:    {Version: c.SpeechVersion, TTL: c.AudioTTL},
			domain.NamespaceDialogue:  {Version: c.DialogueVersion, TTL: c.TextTTL},
			domain.NamespaceTurnAudio: {Version: c.TurnAudioVersion, TTL: c.AudioTTL},
		},
		EphemeralTimeout:  c.EphemeralTimeout,
		DurableTimeout:    c.DurableTimeout,
		GenerationTimeout: c.GenerationTimeout,
	}
}
