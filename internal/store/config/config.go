package config

type Config struct {
	// Обязателен для serve, см. store.NewStore
	DBDsn string `envconfig:"DATABASE_URI" validate:"omitempty,url"`
}
