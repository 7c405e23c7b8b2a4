package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	pkgerrors "github.com/pkg/errors"

	authConfig "github.com/iurnickita/orderwatch/internal/auth/config"
	handlerConfig "github.com/iurnickita/orderwatch/internal/handler/config"
	loggerConfig "github.com/iurnickita/orderwatch/internal/logger/config"
	serviceConfig "github.com/iurnickita/orderwatch/internal/service/config"
	storeConfig "github.com/iurnickita/orderwatch/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
	Auth    authConfig.Config
}

// GetConfig читает окружение и .env, если он есть. Переменные окружения
// важнее значений из .env.
func GetConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, pkgerrors.Wrap(err, "process environment")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, pkgerrors.Wrap(err, "validate config")
	}
	return cfg, nil
}
