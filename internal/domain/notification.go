package domain

import "errors"

const (
	KindAppointmentReminder = "appointment_reminder"
	KindInventoryAlert      = "inventory_alert"
	KindTreatmentFollowUp   = "treatment_follow_up"
	KindPaymentDue          = "payment_due"
	KindSystem              = "system"
)

// KindOther is used in place of kinds the client does not recognise.
const KindOther = "other"

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnected    ConnectionState = "connected"
)

var (
	ErrNotConnected   = errors.New("notification channel not connected")
	ErrMalformedFrame = errors.New("malformed frame")
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidLimit   = errors.New("invalid limit")
)

func IsKnownKind(value string) bool {
	switch value {
	case KindAppointmentReminder, KindInventoryAlert, KindTreatmentFollowUp, KindPaymentDue, KindSystem:
		return true
	default:
		return false
	}
}

// NormalizeKind maps unknown kinds to KindOther so they can be used as a bounded label.
func NormalizeKind(value string) string {
	if IsKnownKind(value) {
		return value
	}
	return KindOther
}
