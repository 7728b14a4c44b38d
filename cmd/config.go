package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	AuthSecret     string `env:"AUTH_SECRET,required=true"`

	HubBufferSize        int  `env:"HUB_BUFFER_SIZE,default=256"`
	ConnectionBufferSize int  `env:"CONNECTION_BUFFER_SIZE,default=64"`
	MaxBodyLength        int  `env:"MAX_BODY_LENGTH,default=2000"`
	LimitMessages        *int `env:"LIMIT_MESSAGES"`

	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	SendRatePerSecond float64       `env:"SEND_RATE_PER_SECOND,default=5"`
	SendBurst         int           `env:"SEND_BURST,default=10"`
	RateIdleTTL       time.Duration `env:"RATE_IDLE_TTL,default=10m"`

	ModerationEnabled  bool   `env:"MODERATION_ENABLED,default=true"`
	ModerationMaskChar string `env:"MODERATION_MASK_CHAR,default=*"`
}

// MaskRune validates that the configured mask is a single character.
func (c Config) MaskRune() (rune, error) {
	r := []rune(c.ModerationMaskChar)
	if len(r) != 1 {
		return 0, fmt.Errorf("MODERATION_MASK_CHAR must be a single character, got %q", c.ModerationMaskChar)
	}
	return r[0], nil
}
