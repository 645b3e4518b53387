package ratelimit

// Config bounds calls to paid back ends. A zero rate disables limiting.
type Config struct {
	RequestsPerMinute int `env:"BACKEND_RATE_LIMIT" envDefault:"120"`
	Burst             int `env:"BACKEND_RATE_BURST" envDefault:"10"`
}
