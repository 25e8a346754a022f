package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"notifyd/internal/model"
)

const upsertNotification = `
INSERT INTO notification_archive
    (id, notification_type, title, message, reference_id, reference_type, sent_at, is_read, received_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    notification_type = VALUES(notification_type),
    title = VALUES(title),
    message = VALUES(message),
    reference_id = VALUES(reference_id),
    reference_type = VALUES(reference_type),
    sent_at = VALUES(sent_at),
    is_read = is_read OR VALUES(is_read)`

const markRead = `UPDATE notification_archive SET is_read = TRUE WHERE id = ?`

const listNotifications = `
SELECT id, notification_type, title, message, reference_id, reference_type, sent_at, is_read
FROM notification_archive
ORDER BY id DESC
LIMIT ?`

func (s *Store) SaveNotifications(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertNotification)
	if err != nil {
		return fmt.Errorf("prepare archive upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	receivedAt := time.Now().UTC()
	for _, n := range notifications {
		if _, err := stmt.ExecContext(ctx,
			n.ID,
			n.Kind,
			n.Title,
			n.Body,
			nullInt64(n.ReferenceID),
			nullString(n.ReferenceKind),
			n.SentAt,
			n.IsRead,
			receivedAt,
		); err != nil {
			s.log.Error("sql archive notification failed", zap.Int64("id", n.ID), zap.Error(err))
			return fmt.Errorf("archive notification %d: %w", n.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

func (s *Store) MarkRead(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, markRead, id); err != nil {
		s.log.Error("sql mark read failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("archive mark read %d: %w", id, err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, listNotifications, limit)
	if err != nil {
		s.log.Error("sql list notifications failed", zap.Int("limit", limit), zap.Error(err))
		return nil, fmt.Errorf("list archive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			refID   sql.NullInt64
			refKind sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Kind, &n.Title, &n.Body, &refID, &refKind, &n.SentAt, &n.IsRead); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		if refID.Valid {
			v := refID.Int64
			n.ReferenceID = &v
		}
		if refKind.Valid {
			v := refKind.String
			n.ReferenceKind = &v
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}
	return result, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
