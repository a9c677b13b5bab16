package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Username string `envconfig:"BEAM_USERNAME"`
	Password string `envconfig:"BEAM_PASSWORD"`
	BaseURL  string `envconfig:"BEAM_BASE_URL" default:"https://beam.pro/api/v1/"`
	// E2E_CHANNEL is the channel joined by the scenarios, the user's own channel when empty
	Channel string `envconfig:"E2E_CHANNEL"`
	// E2E_SEND_MESSAGE allows the scenarios to write in the channel chat
	SendMessage bool          `envconfig:"E2E_SEND_MESSAGE" default:"false"`
	Timeout     time.Duration `envconfig:"E2E_TIMEOUT" default:"30s"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
