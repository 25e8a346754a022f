package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"notifyd/internal/config"
	"notifyd/internal/repository"
	"notifyd/internal/store/memory"
	"notifyd/internal/store/mysql"
)

func NewStore(cfg *config.Config, logger *zap.Logger) (repository.NotificationRepository, error) {
	if cfg.MySQLDSN == "" {
		return memory.New(logger), nil
	}
	sqlDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Error("mysql open failed", zap.Error(err))
		return nil, fmt.Errorf("mysql open: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	if err := sqlDB.Ping(); err != nil {
		logger.Error("mysql ping failed", zap.Error(err))
		_ = sqlDB.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return mysql.New(sqlDB, logger), nil
}
