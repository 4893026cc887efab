package dto

import (
	"time"

	"github.com/noah-isme/portfolio-api/internal/workflow"
)

// PortfolioItem is the public projection of a showcased assignment.
type PortfolioItem struct {
	ID            string                  `json:"id"`
	Title         string                  `json:"title"`
	Subject       string                  `json:"subject"`
	Grade         string                  `json:"grade"`
	ArtifactType  string                  `json:"artifact_type"`
	Month         string                  `json:"month"`
	Skills        []string                `json:"skills"`
	PrideReason   string                  `json:"pride_reason"`
	Files         []workflow.FileRef      `json:"files"`
	ExternalLinks []workflow.ExternalLink `json:"external_links"`
	Status        workflow.Status         `json:"status"`
	VerifiedAt    *time.Time              `json:"verified_at"`
}

// PortfolioResponse is a student's public portfolio page.
type PortfolioResponse struct {
	StudentID   uint            `json:"student_id"`
	StudentName string          `json:"student_name"`
	Items       []PortfolioItem `json:"items"`
	GeneratedAt time.Time       `json:"generated_at"`
}
