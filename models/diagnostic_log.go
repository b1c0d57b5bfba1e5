package models

import "time"

// DiagnosticLog is written by the fallback error handler for failures that
// reached the top of a request.
type DiagnosticLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"size:64;index" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Stack     string    `gorm:"type:text" json:"stack,omitempty"`
	Path      string    `gorm:"size:512" json:"path"`
	RequestID string    `gorm:"size:64" json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
