package config

import (
	"errors"
	"fmt"
	"io/fs"
	stdlog "log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laundry-api/models"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	JWT    JWTConfig
	Log    LogConfig
	Orders OrdersConfig
	Admin  AdminConfig
}

type ServerConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	GinMode         string        `env:"GIN_MODE" envDefault:"debug"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

type DBConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DB_DSN" envDefault:"laundry.db"`
}

// DevJWTSecret is the signing key used when JWT_SECRET is unset. It is
// refused in release mode.
const DevJWTSecret = "laundry_marketplace_dev_secret"

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET" envDefault:"laundry_marketplace_dev_secret"`
	Expiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

type OrdersConfig struct {
	// TransitionPolicy is "sequential" or "permissive"
	TransitionPolicy string `env:"ORDER_TRANSITION_POLICY" envDefault:"sequential"`
}

// AdminConfig provisions the administrator account at startup when both
// fields are set.
type AdminConfig struct {
	Name     string `env:"ADMIN_NAME" envDefault:"Admin User"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file, then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Server.GinMode == "release" && (cfg.JWT.Secret == "" || cfg.JWT.Secret == DevJWTSecret) {
		return nil, errors.New("JWT_SECRET must be set to a non-default value when GIN_MODE=release")
	}
	return cfg, nil
}

// NewLogger builds the process logger: JSON in release mode, text otherwise
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.Server.GinMode == "release" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.WithField("level", cfg.Log.Level).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// OpenDB connects to the configured database and migrates all models
func OpenDB(cfg DBConfig, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(
			stdlog.New(log.WriterLevel(logrus.WarnLevel), "", 0),
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// one writer at a time, concurrent transactions queue on the pool
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.WithField("driver", cfg.Driver).Info("database connected and migrated")
	return db, nil
}

// Migrate creates or updates the schema of every model
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Shop{},
		&models.Service{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
