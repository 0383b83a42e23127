package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// JWT configuration. The default secret is a placeholder and must be
	// overridden in any production deployment.
	JWTSecretKey string `mapstructure:"JWT_SECRET_KEY"`

	// Extension auth flow endpoints.
	AuthFrontendURL string `mapstructure:"AUTH_FRONTEND_URL"`
	AuthBackendURL  string `mapstructure:"AUTH_BACKEND_URL"`

	// Timeout for the remote code-exchange call, in seconds.
	ExchangeTimeoutSec int `mapstructure:"EXCHANGE_TIMEOUT_SEC"`

	// Optional Redis-backed code store. Empty keeps codes in process memory.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	// Generation proxy.
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Enables the /test/create-test-code helper route.
	EnableTestRoutes bool `mapstructure:"ENABLE_TEST_ROUTES"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cannerd/")
	v.AddConfigPath("$HOME/.cannerd")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "5000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/cannerai_db")
	v.SetDefault("MONGO_DB_NAME", "cannerai_db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("JWT_SECRET_KEY", "dev-jwt-secret-change-me") // CHANGE IN PRODUCTION
	v.SetDefault("AUTH_FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("AUTH_BACKEND_URL", "http://localhost:3000")
	v.SetDefault("EXCHANGE_TIMEOUT_SEC", 5)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("ENABLE_TEST_ROUTES", false)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we fall back to env vars and
		// defaults. Anything else is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
