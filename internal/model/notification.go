package model

type Notification struct {
	ID            int64   `json:"id"`
	Kind          string  `json:"notification_type"`
	Title         string  `json:"title"`
	Body          string  `json:"message"`
	ReferenceID   *int64  `json:"reference_id,omitempty"`
	ReferenceKind *string `json:"reference_type,omitempty"`
	SentAt        string  `json:"sent_at"`
	IsRead        bool    `json:"is_read"`
}

// Snapshot is the view of the notification channel handed to UI code.
type Snapshot struct {
	Connected     bool           `json:"connected"`
	UnreadCount   int            `json:"unread_count"`
	Notifications []Notification `json:"notifications"`
	LastError     string         `json:"last_error,omitempty"`
}
