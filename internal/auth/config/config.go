package config

import "time"

type Config struct {
	Secret   string        `envconfig:"AUTH_SECRET" validate:"required"`
	TokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"12h"`
}
