package config

import "time"

type Config struct {
	ServiceAddr string        `envconfig:"ORDER_SERVICE_ADDRESS" validate:"required,url"`
	Token       string        `envconfig:"ORDER_SERVICE_TOKEN"`
	Timeout     time.Duration `envconfig:"ORDER_SERVICE_TIMEOUT" default:"10s"`
}
