package storage

// Config contains durable store settings.
type Config struct {
	Backend string `env:"STORAGE_BACKEND" envDefault:"filesystem"`
	Root    string `env:"STORAGE_ROOT"    envDefault:"./data/artifacts"`
	Bucket  string `env:"STORAGE_BUCKET"`
	// PublicBaseURL prefixes object paths in returned locations. Empty selects
	// the backend default.
	PublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL"`
}
