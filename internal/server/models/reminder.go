package models

import "time"

// Reminder is a scheduled message. Recipients holds the raw comma-separated
// address list as entered; an empty value means "send to the owner".
// Sent and Deleted only ever move from false to true.
type Reminder struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Recipients  string    `json:"recipients,omitempty"`
	Message     string    `json:"message"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Sent        bool      `json:"sent"`
	Deleted     bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// DueReminder is a reminder selected for dispatch together with its owner.
// Owner is nil when the owning user row no longer exists.
type DueReminder struct {
	Reminder
	Owner *User
}
