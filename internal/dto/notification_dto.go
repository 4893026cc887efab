package dto

import (
	"time"

	"github.com/noah-isme/portfolio-api/internal/models"
)

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID           uint      `json:"id"`
	UserID       uint      `json:"user_id"`
	Type         string    `json:"type"`
	AssignmentID string    `json:"assignment_id"`
	Message      string    `json:"message"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:           model.ID,
		UserID:       model.UserID,
		Type:         model.Type,
		AssignmentID: model.AssignmentID,
		Message:      model.Message,
		Read:         model.Read,
		CreatedAt:    model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// NotificationListQuery is parsed from the inbox query string.
type NotificationListQuery struct {
	Limit      int  `query:"limit"`
	Offset     int  `query:"offset"`
	UnreadOnly bool `query:"unread"`
}

// NotificationListResponse is one page of the inbox plus the unread badge count.
type NotificationListResponse struct {
	Items  []NotificationResponse `json:"items"`
	Unread int64                  `json:"unread"`
}
