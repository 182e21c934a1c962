package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Port                     int
	PublicURL                string
	DatabaseURL              string
	RedisURL                 string
	AutoMigrate              bool
	JWTSecret                string
	JWTTTL                   time.Duration
	TelegramBotToken         string
	AuthInsecureInitData     bool
	InitDataMaxAge           time.Duration
	LogLevel                 string
	LogFormat                string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	RateLimitPerMinute       int
	RequestTimeout           time.Duration
	StoreRetryAttempts       int
}

func Default() Config {
	return Config{
		Port:                     8080,
		JWTTTL:                   24 * time.Hour,
		InitDataMaxAge:           24 * time.Hour,
		LogLevel:                 "info",
		LogFormat:                "text",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		RateLimitPerMinute:       120,
		RequestTimeout:           10 * time.Second,
		StoreRetryAttempts:       3,
	}
}

// RegisterFlags declares one flag per setting, defaulting to Default(). The
// matching environment variable is the flag name upper-cased with dashes
// turned into underscores.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVarP(&c.Port, "port", "p", def.Port, "port to listen on (env: PORT)")
	fs.StringVar(&c.PublicURL, "public-url", def.PublicURL, "external base URL used in invite links (env: PUBLIC_URL)")
	fs.StringVar(&c.DatabaseURL, "database-url", def.DatabaseURL, "postgres connection string, in-memory store when empty (env: DATABASE_URL)")
	fs.StringVar(&c.RedisURL, "redis-url", def.RedisURL, "redis URL for shared rate limiting (env: REDIS_URL)")
	fs.BoolVar(&c.AutoMigrate, "auto-migrate", def.AutoMigrate, "apply database migrations on startup (env: AUTO_MIGRATE)")
	fs.StringVar(&c.JWTSecret, "jwt-secret", def.JWTSecret, "secret used to sign session tokens (env: JWT_SECRET)")
	fs.DurationVar(&c.JWTTTL, "jwt-ttl", def.JWTTTL, "lifetime of session tokens (env: JWT_TTL)")
	fs.StringVar(&c.TelegramBotToken, "telegram-bot-token", def.TelegramBotToken, "bot token used to verify mini app init data (env: TELEGRAM_BOT_TOKEN)")
	fs.BoolVar(&c.AuthInsecureInitData, "auth-insecure-init-data", def.AuthInsecureInitData, "accept unsigned init data, local development only (env: AUTH_INSECURE_INIT_DATA)")
	fs.DurationVar(&c.InitDataMaxAge, "init-data-max-age", def.InitDataMaxAge, "maximum age of init data (env: INIT_DATA_MAX_AGE)")
	fs.StringVar(&c.LogLevel, "log-level", def.LogLevel, "log level: debug, info, warn, error (env: LOG_LEVEL)")
	fs.StringVar(&c.LogFormat, "log-format", def.LogFormat, "log format: text or json (env: LOG_FORMAT)")
	fs.IntVar(&c.DBMaxOpenConns, "db-max-open-conns", def.DBMaxOpenConns, "maximum open database connections (env: DB_MAX_OPEN_CONNS)")
	fs.IntVar(&c.DBMaxIdleConns, "db-max-idle-conns", def.DBMaxIdleConns, "maximum idle database connections (env: DB_MAX_IDLE_CONNS)")
	fs.IntVar(&c.DBConnMaxLifetimeSeconds, "db-conn-max-lifetime-seconds", def.DBConnMaxLifetimeSeconds, "connection lifetime in seconds (env: DB_CONN_MAX_LIFETIME_SECONDS)")
	fs.IntVar(&c.DBConnMaxIdleTimeSeconds, "db-conn-max-idle-seconds", def.DBConnMaxIdleTimeSeconds, "connection idle time in seconds (env: DB_CONN_MAX_IDLE_SECONDS)")
	fs.IntVar(&c.RateLimitPerMinute, "rate-limit-per-minute", def.RateLimitPerMinute, "requests per minute per client, 0 disables (env: RATE_LIMIT_PER_MINUTE)")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", def.RequestTimeout, "deadline applied to each API request (env: REQUEST_TIMEOUT)")
	fs.IntVar(&c.StoreRetryAttempts, "store-retry-attempts", def.StoreRetryAttempts, "attempts per store call on transient failures (env: STORE_RETRY_ATTEMPTS)")
}

// BindEnv copies environment values into every flag the command line did not set.
func BindEnv(fs *pflag.FlagSet, v *viper.Viper) error {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", envName(f.Name), err))
			}
		}
	})
	return errors.Join(errs...)
}

// Load resolves the configuration from the environment alone.
func Load() (Config, error) {
	return Parse(pflag.NewFlagSet("config", pflag.ContinueOnError), nil)
}

// Parse registers the config flags on fs next to whatever the caller
// already defined there, parses args and fills unset flags from the
// environment.
func Parse(fs *pflag.FlagSet, args []string) (Config, error) {
	var cfg Config
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := BindEnv(fs, viper.New()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.TelegramBotToken == "" && !c.AuthInsecureInitData {
		return errors.New("TELEGRAM_BOT_TOKEN is required unless AUTH_INSECURE_INIT_DATA is set")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE cannot be negative")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.StoreRetryAttempts < 1 {
		return errors.New("STORE_RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeSeconds) * time.Second
}

func (c Config) ConnMaxIdleTime() time.Duration {
	return time.Duration(c.DBConnMaxIdleTimeSeconds) * time.Second
}

func envName(flag string) string {
	return strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
