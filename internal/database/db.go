package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"go-billing-pos/internal/config"
	"go-billing-pos/internal/models"
)

// Connect opens the configured database, retrying while it comes up, and migrates the schema.
func Connect(cfg config.DatabaseConfig, log *zap.Logger, gl gormlogger.Interface) (*gorm.DB, error) {
	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var (
		db  *gorm.DB
		err error
	)

	// 1. Connect with GORM (wait for DB to be ready)
	for i := 0; i < retries; i++ {
		db, err = Open(cfg, gl)
		if err == nil {
			break
		}
		log.Warn("Failed to connect to database, retrying",
			zap.String("driver", cfg.Driver),
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", retries),
			zap.Error(err),
		)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s after %d attempts: %w", cfg.Driver, retries, err)
	}
	log.Info("Connected to database", zap.String("driver", cfg.Driver))

	// 2. Auto-Migrate
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("Database schema synced")

	return db, nil
}

// Open creates the gorm handle and applies pool settings without migrating.
func Open(cfg config.DatabaseConfig, gl gormlogger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.MySQLDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gcfg := &gorm.Config{}
	if gl != nil {
		gcfg.Logger = gl
	}
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// sqlite has a single writer; one connection keeps the row-lock emulation honest
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Migrate syncs every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.ProductItem{},
		&models.Counter{},
		&models.Bill{},
		&models.BillItem{},
		&models.ReturnBill{},
		&models.ReturnItem{},
		&models.UpdatedBill{},
		&models.UpdatedBillItem{},
		&models.ReconcileJob{},
	)
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
