package models

import "time"

// UploadRecord remembers an artifact pushed to blob storage. Checksum is the
// hex SHA-256 of the stored bytes and lets repeat uploads reuse the URL.
type UploadRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index:idx_upload_owner_checksum,priority:1" json:"user_id"`
	Checksum  string    `gorm:"size:64;index:idx_upload_owner_checksum,priority:2" json:"checksum"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	URL       string    `gorm:"size:512;not null;index" json:"url"`
	MimeType  string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes int64     `gorm:"not null" json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

func (UploadRecord) TableName() string { return "upload_records" }
