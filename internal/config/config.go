// Package config loads process configuration the way the teacher does it:
// a CONFIG_ENV-selected YAML file layered under defaults, unmarshaled into
// a typed struct via viper. Extended with every setting SPEC_FULL.md's
// ambient/domain stack sections name.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	ReadLimit  int64  `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`

	ClientURL string `mapstructure:"client_url"`

	MongoURI string `mapstructure:"mongo_uri"`
	MongoDB  string `mapstructure:"mongo_db"`

	PostgresDSN string `mapstructure:"postgres_dsn"`

	NATSURL string `mapstructure:"nats_url"`

	TURNServerURL  string `mapstructure:"turn_server_url"`
	TURNUsername   string `mapstructure:"turn_username"`
	TURNCredential string `mapstructure:"turn_credential"`
	STUNURLs       []string `mapstructure:"stun_urls"`

	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	SMTPUser string `mapstructure:"smtp_user"`
	SMTPPass string `mapstructure:"smtp_pass"`
	SMTPFrom string `mapstructure:"smtp_from"`

	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model"`

	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`

	UploadDir string `mapstructure:"upload_dir"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("jwt_ttl", "168h")
	v.SetDefault("client_url", "http://localhost:3000")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db", "confcore")
	v.SetDefault("postgres_dsn", "host=localhost user=confcore password=confcore dbname=confcore sslmode=disable")
	v.SetDefault("nats_url", "nats://localhost:4222")
	v.SetDefault("stun_urls", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("smtp_port", 587)
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("rate_limit_requests", 1000)
	v.SetDefault("rate_limit_window", "15m")
	v.SetDefault("upload_dir", "./uploads")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Str("file", fileName).Msg("config file not found, using defaults + env")
	} else {
		log.Info().Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
		log.Warn().Msg("jwt_secret not set, using an insecure development default")
	}
	log.Info().Str("mode", cfg.Mode).Int("port", cfg.Port).Msg("config ready")
	return &cfg, nil
}
