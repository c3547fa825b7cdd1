package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local"`
	AppBaseURL  string `yaml:"app_base_url" env:"APP_BASE_URL"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL" env-default:"sqlite://canalyzer.db"`
	TicketStore string `yaml:"ticket_store" env:"TICKET_STORE" env-default:"sql"`
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	Tokens      `yaml:"tokens"`
	Mail        `yaml:"mail"`
	OpenAI      `yaml:"openai"`
	HTTPServer  `yaml:"http_server"`
}

type HTTPServer struct {
	Address          string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"0.0.0.0:8000"`
	Timeout          time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"60s"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	AllowedOrigins   []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	RateLimitEnabled bool          `yaml:"rate_limit_enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
}

type Tokens struct {
	Secret          string        `yaml:"secret" env:"JWT_SECRET"`
	SessionTTL      time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
	RememberMeTTL   time.Duration `yaml:"remember_me_ttl" env:"REMEMBER_ME_TTL" env-default:"720h"`
	VerificationTTL time.Duration `yaml:"verification_ttl" env:"VERIFICATION_TTL" env-default:"24h"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
}

type Mail struct {
	Provider     string        `yaml:"provider" env:"MAIL_PROVIDER" env-default:"resend"`
	APIKey       string        `yaml:"api_key" env:"RESEND_API_KEY"`
	From         string        `yaml:"from" env:"MAIL_FROM"`
	Timeout      time.Duration `yaml:"timeout" env:"MAIL_TIMEOUT" env-default:"10s"`
	SMTPHost     string        `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     int           `yaml:"smtp_port" env:"SMTP_PORT" env-default:"587"`
	SMTPUsername string        `yaml:"smtp_username" env:"SMTP_USERNAME"`
	SMTPPassword string        `yaml:"smtp_password" env:"SMTP_PASSWORD"`
	AMQPURL      string        `yaml:"amqp_url" env:"AMQP_URL"`
	AMQPQueue    string        `yaml:"amqp_queue" env:"AMQP_QUEUE" env-default:"verification_emails"`
}

type OpenAI struct {
	APIKey      string        `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"OPENAI_BASE_URL"`
	Model       string        `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	MaxTokens   int           `yaml:"max_tokens" env:"OPENAI_MAX_TOKENS" env-default:"900"`
	Temperature float32       `yaml:"temperature" env:"OPENAI_TEMPERATURE" env-default:"0.1"`
	Timeout     time.Duration `yaml:"timeout" env:"OPENAI_TIMEOUT" env-default:"45s"`
}

// Load reads an optional .env file, then the YAML file named by CONFIG_PATH
// if set, and finally the process environment.
func Load() (*Config, error) {
	const op = "config.Load"

	_ = godotenv.Load()

	var cfg Config

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
		}

		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.AppBaseURL = strings.TrimRight(strings.TrimSpace(cfg.AppBaseURL), "/")

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return cfg
}
