package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"blog_api/internal/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDatabase 初始化数据库连接
// 生产使用 Postgres；本地开发可切换为 SQLite 文件
func InitDatabase(cfg config.DatabaseConfig, debug bool) *gorm.DB {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		db, err = NewSQLite(cfg.SQLitePath, logLevel)
	default:
		db, err = NewPostgres(cfg, logLevel)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

// PostgresDSN 拼接 Postgres DSN
func PostgresDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode, cfg.TimeZone)
}

// NewPostgres 打开 Postgres 连接并配置连接池
func NewPostgres(cfg config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:      logger.Default.LogMode(logLevel),
		PrepareStmt: true, // 预编译 SQL 缓存
		NowFunc:     func() time.Time { return time.Now().UTC() },
	}

	db, err := gorm.Open(postgres.Open(PostgresDSN(cfg)), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	configureConnectionPool(sqlDB)

	return db, nil
}

// NewSQLite 打开 SQLite 连接
// SQLite 只允许单写者，这里把连接池限制为 1，事务之间自然串行
func NewSQLite(path string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}
	return db, nil
}

// configureConnectionPool 配置数据库连接池
func configureConnectionPool(sqlDB *sql.DB) {
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 30)

	log.Println("Database connection pool configured successfully")
}
