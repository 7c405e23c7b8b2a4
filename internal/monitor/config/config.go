package config

import "time"

type Config struct {
	PollInterval time.Duration `envconfig:"ORDER_POLL_INTERVAL" default:"30s" validate:"gt=0"`
	PageSize     int           `envconfig:"ORDER_POLL_PAGE_SIZE" default:"20" validate:"gt=0"`
}
