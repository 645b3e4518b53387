package ledger

// Config contains entry ledger settings.
type Config struct {
	Enabled bool   `env:"LEDGER_ENABLED" envDefault:"true"`
	Path    string `env:"LEDGER_PATH"    envDefault:"./data/ledger.db"`
}
