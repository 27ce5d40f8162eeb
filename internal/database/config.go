package database

import (
	"fmt"
	"log"
	"pharmacist/internal/config"
	"pharmacist/internal/models"
	"pharmacist/internal/utils"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

// Queries issued on every worker tick, kept out of the SQL log
var workerQueryPatterns = []string{
	"notified_at IS NULL",
	"snoozed_until <=",
	"reminder.status = ",
}

// InitDB opens the configured database, applies migrations and stores the handle in DB
func InitDB(cfg *config.Config) error {
	db, err := Connect(cfg.Database)
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	log.Println("Database connection established and migrations completed")
	return nil
}

// Connect opens a connection with retry logic and configures the pool
func Connect(dbCfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(dbCfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if dbCfg.LogSQL {
		logLevel = logger.Info
	}

	// Create base logger
	baseLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags|log.Lshortfile),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	gormConfig := &gorm.Config{
		Logger: utils.NewSQLLogger(baseLogger, workerQueryPatterns...),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
	}

	maxRetries := dbCfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var db *gorm.DB
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			break
		}
		log.Printf("Database connection attempt %d failed: %v", i+1, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", dbCfg.RetryDelay)
			time.Sleep(dbCfg.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if dbCfg.Driver == config.DriverSQLite {
		// sqlite allows a single writer; in-memory databases also vanish when the last connection closes
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

func dialectorFor(dbCfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch dbCfg.Driver {
	case config.DriverSQLite:
		dsn := dbCfg.URL
		if dsn == "" {
			dsn = "pharmacist.db"
		}
		if !strings.Contains(dsn, "_pragma=foreign_keys") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=foreign_keys(1)"
		}
		return sqlite.Open(dsn), nil
	case config.DriverPostgres:
		return postgres.Open(postgresDSN(dbCfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dbCfg.Driver)
	}
}

// postgresDSN prefers a full URL (as provided by hosting platforms) over individual parameters
func postgresDSN(dbCfg config.DatabaseConfig) string {
	if dbCfg.URL != "" {
		return dbCfg.URL
	}

	sslMode := dbCfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
		dbCfg.Host, dbCfg.User, dbCfg.Password, dbCfg.Name, dbCfg.Port, sslMode)
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.LoginLog{},
		&models.Medication{},
		&models.Reminder{},
		&models.ReminderTime{},
		&models.ReminderLog{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.ChatImage{},
		&models.PushSubscription{},
		&models.NotificationSettings{},
		&models.NotificationLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SetDB replaces the shared handle, used by commands and tests that open their own connection
func SetDB(db *gorm.DB) {
	DB = db
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
