package database

import (
	"fmt"
	"strings"
	"time"

	"tutor-server/services/chat-api/internal/infrastructure/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// SchemaRegistry collects the models dbschema packages register in their
// init functions. Migration walks it in registration order.
var SchemaRegistry []interface{}

func RegisterSchemaForAutoMigrate(models ...interface{}) {
	SchemaRegistry = append(SchemaRegistry, models...)
}

// Config holds database connection settings.
type Config struct {
	DatabaseURL string
	MaxIdle     int
	MaxOpen     int
	MaxLifetime time.Duration
	LogLevel    gormlogger.LogLevel
}

// Connect opens a postgres connection with all tables namespaced under
// the chat_api schema and applies the pool settings from cfg.
func Connect(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   "chat_api.",
			SingularTable: false,
		},
		Logger: gormlogger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		lg := logger.GetLogger()
		lg.Error().
			Str("error_code", "9d41c7b2-5e80-4f3a-bf26-713c8a04de59").
			Err(err).
			Msg("unable to connect to database")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	lg := logger.GetLogger()
	lg.Info().Msg("Successfully connected to database")
	return db, nil
}

// NewDB opens a connection with the default pool settings.
func NewDB(dsn string) (*gorm.DB, error) {
	return Connect(Config{
		DatabaseURL: dsn,
		MaxIdle:     10,
		MaxOpen:     25,
		MaxLifetime: time.Hour,
		LogLevel:    gormlogger.Silent,
	})
}

// DatabaseMigration marks a database as initialized. Its presence tells
// Migration that the schema already exists and must not be rebuilt.
type DatabaseMigration struct {
	gorm.Model
	Version string `gorm:"not null;uniqueIndex"`
}

// Migration bootstraps the schema on first run. When the marker table is
// missing the schema is recreated from scratch and every registered model
// is auto-migrated; otherwise the database is left untouched.
func Migration(db *gorm.DB, tablePrefix string) error {
	schemaName := strings.TrimSuffix(tablePrefix, ".")
	if schemaName == "" {
		schemaName = "chat_api"
	}

	if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", schemaName)).Error; err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if db.Migrator().HasTable(&DatabaseMigration{}) {
		return nil
	}

	if err := db.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE;", schemaName)).Error; err != nil {
		return fmt.Errorf("failed to drop %s schema: %w", schemaName, err)
	}
	if err := db.Exec(fmt.Sprintf("CREATE SCHEMA %s;", schemaName)).Error; err != nil {
		return fmt.Errorf("failed to create %s schema: %w", schemaName, err)
	}
	if err := db.AutoMigrate(&DatabaseMigration{}); err != nil {
		return fmt.Errorf("failed to create 'database_migration' table: %w", err)
	}
	for _, model := range SchemaRegistry {
		if err := db.AutoMigrate(model); err != nil {
			lg := logger.GetLogger()
			lg.Error().
				Str("error_code", "e6a2f81d-0c47-49b5-9e3a-b85d12c4f7a0").
				Err(err).
				Msgf("failed to auto migrate schema: %T", model)
			return err
		}
	}
	return nil
}
