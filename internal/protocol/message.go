package protocol

import (
	"encoding/json"
	"fmt"

	"notifyd/internal/domain"
	"notifyd/internal/model"
)

// Inbound message types sent by the backend notification socket.
const (
	TypeConnected           = "connected"
	TypeCount               = "count"
	TypeNotification        = "notification"
	TypeRecentNotifications = "recent_notifications"
	TypeMarkReadSuccess     = "mark_read_success"
	TypeError               = "error"
)

// Message is one decoded inbound frame. Data is decoded lazily because its
// shape depends on Type.
type Message struct {
	Type          string               `json:"type"`
	Message       string               `json:"message,omitempty"`
	Count         *int                 `json:"count,omitempty"`
	Data          json.RawMessage      `json:"data,omitempty"`
	Notifications []model.Notification `json:"notifications,omitempty"`
}

type markReadData struct {
	ID int64 `json:"id"`
}

func Decode(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", domain.ErrMalformedFrame)
	}
	return msg, nil
}

func (m Message) Notification() (model.Notification, error) {
	if len(m.Data) == 0 || string(m.Data) == "null" {
		return model.Notification{}, fmt.Errorf("%w: notification without data", domain.ErrMalformedFrame)
	}
	var n model.Notification
	if err := json.Unmarshal(m.Data, &n); err != nil {
		return model.Notification{}, fmt.Errorf("%w: notification data: %v", domain.ErrMalformedFrame, err)
	}
	return n, nil
}

func (m Message) MarkedReadID() (int64, bool) {
	if len(m.Data) == 0 || string(m.Data) == "null" {
		return 0, false
	}
	var d markReadData
	if err := json.Unmarshal(m.Data, &d); err != nil {
		return 0, false
	}
	return d.ID, true
}
