package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hookahledger/internal/auth"
	"hookahledger/internal/models"
)

type Options struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     logger.LogLevel
}

// Open connects to postgres (postgres://, postgresql:// or a key=value DSN)
// or to sqlite when the URL starts with sqlite://.
func Open(opts Options) (*gorm.DB, error) {
	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}

	var (
		dialector gorm.Dialector
		isSQLite  bool
	)
	switch {
	case strings.HasPrefix(opts.URL, "sqlite://"):
		dialector = sqlite.Open(strings.TrimPrefix(opts.URL, "sqlite://"))
		isSQLite = true
	case opts.URL == "":
		return nil, errors.New("open database: empty url")
	default:
		dialector = postgres.Open(opts.URL)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if isSQLite {
		// sqlite has a single writer; one connection keeps in-memory
		// databases alive and serializes transactions.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SeedAdmin creates the first admin when no active admin exists yet. It is a
// no-op without a PIN.
func SeedAdmin(db *gorm.DB, name, pin string, lg *zap.SugaredLogger) error {
	if pin == "" {
		return nil
	}
	var count int64
	if err := db.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleAdmin, true).Count(&count).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPIN(pin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	u := models.User{Name: strings.TrimSpace(name), PINHash: hash, Role: models.RoleAdmin, IsActive: true}
	if err := db.Create(&u).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	lg.Infow("seeded default admin", "name", u.Name, "id", u.ID)
	return nil
}
