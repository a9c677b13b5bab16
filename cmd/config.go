package main

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Username       string        `env:"BEAM_USERNAME,required=true" validate:"required"`
	Password       string        `env:"BEAM_PASSWORD,required=true" validate:"required"`
	TwoFactorCode  string        `env:"BEAM_2FA_CODE" validate:"omitempty,len=6,numeric"`
	Channels       string        `env:"CHANNELS"`
	AutoJoin       bool          `env:"AUTO_JOIN,default=true"`
	BaseURL        string        `env:"BEAM_BASE_URL,default=https://beam.pro/api/v1/" validate:"url"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT,default=15s" validate:"gt=0"`
	// Heartbeat, retry and slow chat fall back to the session defaults when unset
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL"`
	CredentialRetry   time.Duration `env:"CREDENTIAL_RETRY"`
	SlowChat          time.Duration `env:"SLOW_CHAT"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=5s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=1s"`
	EventBuffer       int           `env:"EVENT_BUFFER,default=1024" validate:"gt=0"`
	ReportInterval    time.Duration `env:"REPORT_INTERVAL,default=1m"`
	// Directory of censored word lists, one <lang>.txt per language. Censoring is off when empty.
	DictionaryDir             string `env:"DICTIONARY_DIR"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*" validate:"len=1"`
	EventDumpDir              string `env:"EVENT_DUMP_DIR"`
	BotCommands               bool   `env:"BOT_COMMANDS,default=true"`
	BadgerFilepath            string `env:"BADGER_FILEPATH,required=true" validate:"required"`
	LogLevel                  string `env:"LOG_LEVEL,default=INFO"`
}

func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// ChannelTokens splits the comma separated CHANNELS list.
func (c Config) ChannelTokens() []string {
	var tokens []string
	for _, token := range strings.Split(c.Channels, ",") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func (c Config) CensoredChar() rune {
	return []rune(c.ModerationCharReplacement)[0]
}
