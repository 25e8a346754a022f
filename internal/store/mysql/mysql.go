package mysql

import (
	"database/sql"

	"go.uber.org/zap"
	"notifyd/internal/repository"
)

// Store is the MySQL-backed notification archive (db/schema.sql).
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

var _ repository.NotificationRepository = (*Store)(nil)

func New(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, log: logger}
}

func (s *Store) Close() error {
	return s.db.Close()
}
