package config

type Config struct {
	ServerAddr string `envconfig:"SERVER_ADDRESS" default:":8080" validate:"required"`
}
