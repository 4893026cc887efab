package dto

import "github.com/noah-isme/portfolio-api/internal/workflow"

// UploadResponse describes the stored asset metadata returned to the client.
// File is ready to be appended to the assignment's files.
type UploadResponse struct {
	URL       string           `json:"url"`
	FileName  string           `json:"file_name"`
	MimeType  string           `json:"mime_type"`
	SizeBytes int64            `json:"size_bytes"`
	Checksum  string           `json:"checksum"`
	File      workflow.FileRef `json:"file"`
}
