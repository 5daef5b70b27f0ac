package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort          string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	JWTSecret         string `env:"JWT_SECRET,required"`
	SessionTTLMinutes int    `env:"SESSION_TTL_MINUTES" envDefault:"1440"`
	UnipileAPIURL     string `env:"UNIPILE_API_URL" envDefault:"https://api.unipile.com/v1"`
	UnipileAPIKey     string `env:"UNIPILE_API_KEY"`
	UnipileTimeoutSec int    `env:"UNIPILE_TIMEOUT_SECONDS" envDefault:"30"`
	FrontendURL       string `env:"FRONTEND_URL"`
	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	LoginRateWindow   int    `env:"LOGIN_RATE_WINDOW_SECONDS" envDefault:"0"`
	LoginRateMax      int    `env:"LOGIN_RATE_MAX" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
