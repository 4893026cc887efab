package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Assignment is a student's portfolio artifact together with its reflections
// and review history. JSON columns are stored raw; legacy shapes are
// normalised when the row is loaded.
type Assignment struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	StudentID uint   `gorm:"not null;index" json:"student_id"`
	TeacherID *uint  `gorm:"index" json:"teacher_id"`

	Title        string `gorm:"size:255" json:"title"`
	Subject      string `gorm:"size:128;index" json:"subject"`
	Grade        string `gorm:"size:32" json:"grade"`
	ArtifactType string `gorm:"size:64" json:"artifact_type"`
	Month        string `gorm:"size:16" json:"month"`
	Status       string `gorm:"size:32;not null;index" json:"status"`

	IsTeamWork             *bool  `json:"is_team_work"`
	TeamContribution       string `gorm:"type:text" json:"team_contribution"`
	IsOriginalWork         *bool  `json:"is_original_work"`
	OriginalityExplanation string `gorm:"type:text" json:"originality_explanation"`

	SkillsJustification string `gorm:"type:text" json:"skills_justification"`
	PrideReason         string `gorm:"type:text" json:"pride_reason"`
	CreationProcess     string `gorm:"type:text" json:"creation_process"`
	Learnings           string `gorm:"type:text" json:"learnings"`
	Challenges          string `gorm:"type:text" json:"challenges"`
	Improvements        string `gorm:"type:text" json:"improvements"`
	Acknowledgments     string `gorm:"type:text" json:"acknowledgments"`

	SelectedSkills datatypes.JSON `gorm:"type:json" json:"selected_skills"`
	Files          datatypes.JSON `gorm:"type:json" json:"files"`
	YouTubeLinks   datatypes.JSON `gorm:"column:youtube_links;type:json" json:"youtubelinks"`
	ExternalLinks  datatypes.JSON `gorm:"type:json" json:"external_links"`
	// LinksMigrated is set once external_links has been written; youtube_links
	// is ignored from then on.
	LinksMigrated bool           `gorm:"not null;default:false" json:"links_migrated"`
	Feedback      datatypes.JSON `gorm:"type:json" json:"feedback"`

	CurrentRevision int            `gorm:"not null;default:0" json:"current_revision"`
	RevisionHistory datatypes.JSON `gorm:"type:json" json:"revision_history"`

	SubmittedAt *time.Time `json:"submitted_at"`
	VerifiedAt  *time.Time `json:"verified_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate assigns an opaque identifier on first persist.
func (a *Assignment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
