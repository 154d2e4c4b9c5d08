// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// перед этим godotenv подхватывает .env (если он есть).
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/common"
)

// Драйверы хранилища документов.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Discord ---
	DiscordToken string `envconfig:"DISCORD_TOKEN" required:"true"`
	// Если задан — slash-команды регистрируются только в этой гильдии (мгновенно, удобно для разработки)
	CommandsGuildID string `envconfig:"COMMANDS_GUILD_ID"`

	AdminIDsRaw string   `envconfig:"ADMIN_IDS"`
	AdminIDs    []string `envconfig:"-"` // заполним вручную

	AllowedGuildIDsRaw string   `envconfig:"ALLOWED_GUILD_IDS"`
	AllowedGuildIDs    []string `envconfig:"-"` // пусто = все гильдии

	// --- Storage ---
	DBDriver       string        `envconfig:"DB_DRIVER" default:"postgres"`
	StorageTimeout time.Duration `envconfig:"STORAGE_TIMEOUT" default:"5s"`
	SQLitePath     string        `envconfig:"SQLITE_PATH" default:"resource-bot.sqlite"`

	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"resource_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// Сколько событий обрабатываем параллельно. Иначе "go на каждое событие" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`

	// --- Resources ---
	CooldownWindow  time.Duration `envconfig:"COOLDOWN_WINDOW" default:"1h"`
	TriggerWordsRaw string        `envconfig:"TRIGGER_WORDS"`
	TriggerWords    []string      `envconfig:"-"`

	// --- Leaderboard ---
	LeaderboardPageSize int           `envconfig:"LEADERBOARD_PAGE_SIZE" default:"10"`
	LeaderboardViewTTL  time.Duration `envconfig:"LEADERBOARD_VIEW_TTL" default:"60s"`

	// --- AFK ---
	AFKNoticeTTL time.Duration `envconfig:"AFK_NOTICE_TTL" default:"10s"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Jobs ---
	SweepSchedule string `envconfig:"SWEEP_SCHEDULE" default:"@every 1m"`

	// --- Metrics ---
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	// --- Feature Flags ---
	FeatureResourcesEnabled  bool `envconfig:"FEATURE_RESOURCES_ENABLED" default:"true"`
	FeatureAFKEnabled        bool `envconfig:"FEATURE_AFK_ENABLED" default:"true"`
	FeatureModerationEnabled bool `envconfig:"FEATURE_MODERATION_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin — входит ли пользователь в ADMIN_IDS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN не задан")
	}
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для DB_DRIVER=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH не задан")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("неизвестный DB_DRIVER %q", c.DBDriver)
	}
	if c.StorageTimeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT должен быть > 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.CooldownWindow < 0 {
		return fmt.Errorf("COOLDOWN_WINDOW не может быть отрицательным")
	}
	if c.LeaderboardPageSize <= 0 || c.LeaderboardPageSize > 25 {
		// в embed Discord не больше 25 полей
		return fmt.Errorf("LEADERBOARD_PAGE_SIZE должен быть в диапазоне 1..25")
	}
	if c.LeaderboardViewTTL <= 0 {
		return fmt.Errorf("LEADERBOARD_VIEW_TTL должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения, заполняет структуру Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug(".env не найден, используем только окружение")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	var err error
	if cfg.AdminIDs, err = common.SplitIDs(cfg.AdminIDsRaw); err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	if cfg.AllowedGuildIDs, err = common.SplitIDs(cfg.AllowedGuildIDsRaw); err != nil {
		return nil, fmt.Errorf("ALLOWED_GUILD_IDS parse: %w", err)
	}
	cfg.TriggerWords = common.SplitCSV(cfg.TriggerWordsRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
