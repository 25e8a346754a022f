package protocol

import (
	"encoding/json"
	"fmt"

	"notifyd/internal/domain"
)

const (
	ActionGetRecent = "get_recent"
	ActionMarkRead  = "mark_read"
)

type getRecentCommand struct {
	Action string `json:"action"`
	Limit  int    `json:"limit"`
}

type markReadCommand struct {
	Action         string `json:"action"`
	NotificationID int64  `json:"notification_id"`
}

func EncodeGetRecent(limit int) ([]byte, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidLimit, limit)
	}
	return json.Marshal(getRecentCommand{Action: ActionGetRecent, Limit: limit})
}

func EncodeMarkRead(notificationID int64) ([]byte, error) {
	return json.Marshal(markReadCommand{Action: ActionMarkRead, NotificationID: notificationID})
}

// Command is the loose form used when commands arrive from other processes.
type Command struct {
	Action         string `json:"action"`
	Limit          int    `json:"limit,omitempty"`
	NotificationID int64  `json:"notification_id,omitempty"`
}
