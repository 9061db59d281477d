package models

import "time"

// Notification is one in-app inbox entry. It lives only as long as the inbox backend keeps it.
type Notification struct {
	ID        string    `json:"id"`
	FarmerID  int64     `json:"farmer_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
	// Quiet stores the entry without pushing it to open websockets.
	Quiet     bool      `json:"-"`
}

// ListOptions filters an inbox listing. Limit <= 0 means no limit.
type ListOptions struct {
	UnreadOnly bool
	Limit      int
}
