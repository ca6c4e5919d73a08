package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rolecenter/config"
	"rolecenter/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// zapWriter adapts a SugaredLogger to gorm's logger.Writer.
type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Infof(strings.TrimSpace(format), args...)
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Open connects to the configured database. SQL logging goes through log.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dial, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormLogger := logger.New(
		zapWriter{log: log.Named("gorm").Sugar()},
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  gormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true, // Don't include params in the SQL log
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true, // unique violations surface as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the role, user and membership tables.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}); err != nil {
		return fmt.Errorf("failed to set up user_roles join table: %w", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.UserRole{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks the underlying connection.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SeedInitialData creates the bootstrap roles and the first administrator if they
// don't exist. It is safe to run on every start.
func SeedInitialData(ctx context.Context, db *gorm.DB, seed config.BootstrapConfig, log *zap.SugaredLogger) error {
	db = db.WithContext(ctx)

	for _, name := range seed.Roles {
		if strings.TrimSpace(name) == "" {
			continue
		}
		var existing models.Role
		err := db.Where("normalized_name = ?", models.NormalizeName(name)).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("checking role %s: %w", name, err)
		}
		if err := db.Create(&models.Role{Name: strings.TrimSpace(name)}).Error; err != nil {
			return fmt.Errorf("seeding role %s: %w", name, err)
		}
		log.Infow("Seeded role", "role", name)
	}

	if seed.AdminEmail == "" {
		return nil
	}

	var admin models.User
	err := db.Where("normalized_email = ?", models.NormalizeName(seed.AdminEmail)).First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("checking admin user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(seed.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	normalized := make([]string, 0, len(seed.AdminRoleNames))
	for _, name := range seed.AdminRoleNames {
		normalized = append(normalized, models.NormalizeName(name))
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin = models.User{
			Email:    seed.AdminEmail,
			FullName: seed.AdminFullName,
			Password: string(hashedPassword),
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("creating initial admin user: %w", err)
		}

		var roles []models.Role
		if len(normalized) > 0 {
			if err := tx.Where("normalized_name IN ?", normalized).Find(&roles).Error; err != nil {
				return fmt.Errorf("finding admin roles: %w", err)
			}
		}
		for _, role := range roles {
			if err := tx.Create(&models.UserRole{UserID: admin.ID, RoleID: role.ID}).Error; err != nil {
				return fmt.Errorf("assigning %s to admin: %w", role.Name, err)
			}
		}
		log.Infow("Created initial admin user", "email", admin.Email, "roles", len(roles))
		return nil
	})
}
