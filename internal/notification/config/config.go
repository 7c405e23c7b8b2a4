package config

type Config struct {
	Locale   string `envconfig:"NOTIFICATION_LOCALE" default:"vi"`
	Currency string `envconfig:"NOTIFICATION_CURRENCY" default:"₫"`
}
