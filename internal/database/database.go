package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/config"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"
	"github.com/RainbowRain9/auto-prompt-sub002/pkg/logger"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the configured store and assigns it to DB.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch cfg.DBDriver {
	case "sqlite":
		db, err = OpenSQLite(cfg.DSN())
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	logger.L().Info("Database connected", zap.String("driver", cfg.DBDriver))

	DB = db
	return db, nil
}

// OpenSQLite opens a SQLite database with foreign keys enforced, so that
// deleting a template cascades to its likes.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "_pragma=foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	// A single connection keeps in-memory databases shared and avoids SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

// PromptIndexName is the lookup index on prompt_histories.prompt.
const PromptIndexName = "idx_prompt_histories_prompt_lookup"

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.PromptTemplate{},
		&models.UserLike{},
		&models.PromptHistory{},
		&models.ProviderCredential{},
	); err != nil {
		return err
	}
	return migratePromptIndex(db)
}

// migratePromptIndex indexes history prompts. Postgres btree entries are
// capped near 2.7KB, so prompts get a hash index there instead.
func migratePromptIndex(db *gorm.DB) error {
	for _, stmt := range promptIndexStatements(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("prompt index: %w", err)
		}
	}
	return nil
}

func promptIndexStatements(dialect string) []string {
	if dialect == "postgres" {
		return []string{
			// Older schemas carried a btree on the raw column.
			"DROP INDEX IF EXISTS idx_prompt_histories_prompt",
			"CREATE INDEX IF NOT EXISTS " + PromptIndexName + " ON prompt_histories USING hash (prompt)",
		}
	}
	return []string{
		"CREATE INDEX IF NOT EXISTS " + PromptIndexName + " ON prompt_histories (prompt)",
	}
}

// Ping checks that the store answers.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
