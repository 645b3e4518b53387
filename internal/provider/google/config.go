package google

// Config contains Google Cloud Text-to-Speech settings.
// Credentials come from the environment (GOOGLE_APPLICATION_CREDENTIALS).
type Config struct {
	Enabled      bool    `env:"GOOGLE_TTS_ENABLED"       envDefault:"false"`
	LanguageCode string  `env:"GOOGLE_TTS_LANGUAGE_CODE" envDefault:"cmn-CN"`
	SpeakingRate float64 `env:"GOOGLE_TTS_SPEAKING_RATE" envDefault:"1.0"`
}
