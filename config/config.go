package config

import (
	"fmt"
	"time"

	"livequiz/services"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	FanoutLocal = "local"
	FanoutRedis = "redis"
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	BindAddress   string `env:"BIND_ADDRESS" envDefault:"localhost"`
	DBHost        string `env:"DB_HOST" envDefault:"localhost"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBUser        string `env:"DB_USER" envDefault:"livequiz"`
	DBPassword    string `env:"DB_PASSWORD" envDefault:"livequiz123"`
	DBName        string `env:"DB_NAME" envDefault:"livequiz"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	JWTSecret     string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	FanoutMode    string `env:"FANOUT_MODE" envDefault:"local"`
	OTelEndpoint  string `env:"OTEL_ENDPOINT"`

	PlayerTokenTTL       time.Duration `env:"PLAYER_TOKEN_TTL" envDefault:"6h"`
	QuestionExpiryBuffer time.Duration `env:"QUESTION_EXPIRY_BUFFER" envDefault:"5s"`
	EarlyProgressDelay   time.Duration `env:"EARLY_PROGRESS_DELAY" envDefault:"2s"`
	JoinDedupWindow      time.Duration `env:"JOIN_DEDUP_WINDOW" envDefault:"1s"`
	ScoreDecayWindow     time.Duration `env:"SCORE_DECAY_WINDOW" envDefault:"30s"`
	CodeAttempts         int           `env:"CODE_ATTEMPTS" envDefault:"10"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.FanoutMode != FanoutLocal && cfg.FanoutMode != FanoutRedis {
		return nil, fmt.Errorf("invalid FANOUT_MODE %q", cfg.FanoutMode)
	}
	if cfg.CodeAttempts < 1 {
		return nil, fmt.Errorf("CODE_ATTEMPTS must be positive, got %d", cfg.CodeAttempts)
	}
	return &cfg, nil
}

// GameSettings projects the timing knobs onto the orchestrator settings.
func (c *Config) GameSettings() services.GameSettings {
	return services.GameSettings{
		QuestionExpiryBuffer: c.QuestionExpiryBuffer,
		EarlyProgressDelay:   c.EarlyProgressDelay,
		JoinDedupWindow:      c.JoinDedupWindow,
		ScoreDecayWindow:     c.ScoreDecayWindow,
		CodeAttempts:         c.CodeAttempts,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func InitRedis(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})
}
