package models

import "time"

// Notification is an in-app message for one recipient, usually about a
// status change on an assignment.
type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:idx_notification_inbox,priority:1" json:"user_id"`
	Read         bool      `gorm:"not null;default:false;index:idx_notification_inbox,priority:2" json:"read"`
	Type         string    `gorm:"size:64;not null" json:"type"`
	AssignmentID string    `gorm:"size:36;index" json:"assignment_id"`
	Message      string    `gorm:"type:text" json:"message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
