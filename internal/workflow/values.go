package workflow

import (
	"strings"
	"time"
)

// Field names used by the question table and validation messages.
const (
	FieldTitle                  = "title"
	FieldSubject                = "subject"
	FieldGrade                  = "grade"
	FieldArtifactType           = "artifact_type"
	FieldMonth                  = "month"
	FieldIsTeamWork             = "is_team_work"
	FieldTeamContribution       = "team_contribution"
	FieldIsOriginalWork         = "is_original_work"
	FieldOriginalityExplanation = "originality_explanation"
	FieldSelectedSkills         = "selected_skills"
	FieldSkillsJustification    = "skills_justification"
	FieldPrideReason            = "pride_reason"
	FieldCreationProcess        = "creation_process"
	FieldLearnings              = "learnings"
	FieldChallenges             = "challenges"
	FieldImprovements           = "improvements"
	FieldAcknowledgments        = "acknowledgments"
	FieldArtifacts              = "artifacts"
)

// LinkTypeYouTube tags external links derived from the legacy youtube list.
const LinkTypeYouTube = "youtube"

// FileRef points at an uploaded artifact in blob storage.
type FileRef struct {
	URL                    string    `json:"url"`
	Name                   string    `json:"name"`
	Type                   string    `json:"type"`
	Size                   int64     `json:"size"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
	IsProcessDocumentation bool      `json:"is_process_documentation"`
}

// YouTubeLink is the legacy link shape, kept for reading old rows only.
type YouTubeLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ExternalLink is the canonical artifact link shape.
type ExternalLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Values holds the wizard form state of one assignment.
type Values struct {
	Title        string `json:"title"`
	Subject      string `json:"subject"`
	Grade        string `json:"grade"`
	ArtifactType string `json:"artifact_type"`
	Month        string `json:"month"`

	IsTeamWork             *bool  `json:"is_team_work"`
	TeamContribution       string `json:"team_contribution"`
	IsOriginalWork         *bool  `json:"is_original_work"`
	OriginalityExplanation string `json:"originality_explanation"`

	SelectedSkills      []string `json:"selected_skills"`
	SkillsJustification string   `json:"skills_justification"`
	PrideReason         string   `json:"pride_reason"`

	CreationProcess string `json:"creation_process"`
	Learnings       string `json:"learnings"`
	Challenges      string `json:"challenges"`
	Improvements    string `json:"improvements"`
	Acknowledgments string `json:"acknowledgments"`

	Files         []FileRef      `json:"files"`
	YouTubeLinks  []YouTubeLink  `json:"youtubelinks"`
	ExternalLinks []ExternalLink `json:"externalLinks"`
}

// Clone returns a deep copy of the values.
func (v Values) Clone() Values {
	out := v
	if v.IsTeamWork != nil {
		b := *v.IsTeamWork
		out.IsTeamWork = &b
	}
	if v.IsOriginalWork != nil {
		b := *v.IsOriginalWork
		out.IsOriginalWork = &b
	}
	if v.SelectedSkills != nil {
		out.SelectedSkills = append([]string{}, v.SelectedSkills...)
	}
	if v.Files != nil {
		out.Files = append([]FileRef{}, v.Files...)
	}
	if v.YouTubeLinks != nil {
		out.YouTubeLinks = append([]YouTubeLink{}, v.YouTubeLinks...)
	}
	if v.ExternalLinks != nil {
		out.ExternalLinks = append([]ExternalLink{}, v.ExternalLinks...)
	}
	return out
}

// HasArtifact reports whether at least one file or non-empty link is attached.
func (v Values) HasArtifact() bool {
	if len(v.Files) > 0 {
		return true
	}
	for _, link := range v.ExternalLinks {
		if strings.TrimSpace(link.URL) != "" {
			return true
		}
	}
	for _, link := range v.YouTubeLinks {
		if strings.TrimSpace(link.URL) != "" {
			return true
		}
	}
	return false
}

// text returns the string field with the given name.
func (v Values) text(field string) (string, bool) {
	switch field {
	case FieldTitle:
		return v.Title, true
	case FieldSubject:
		return v.Subject, true
	case FieldGrade:
		return v.Grade, true
	case FieldArtifactType:
		return v.ArtifactType, true
	case FieldMonth:
		return v.Month, true
	case FieldTeamContribution:
		return v.TeamContribution, true
	case FieldOriginalityExplanation:
		return v.OriginalityExplanation, true
	case FieldSkillsJustification:
		return v.SkillsJustification, true
	case FieldPrideReason:
		return v.PrideReason, true
	case FieldCreationProcess:
		return v.CreationProcess, true
	case FieldLearnings:
		return v.Learnings, true
	case FieldChallenges:
		return v.Challenges, true
	case FieldImprovements:
		return v.Improvements, true
	case FieldAcknowledgments:
		return v.Acknowledgments, true
	default:
		return "", false
	}
}

// flag returns the boolean field with the given name; nil means unanswered.
func (v Values) flag(field string) (*bool, bool) {
	switch field {
	case FieldIsTeamWork:
		return v.IsTeamWork, true
	case FieldIsOriginalWork:
		return v.IsOriginalWork, true
	default:
		return nil, false
	}
}

// present reports whether the named field carries an answer.
func (v Values) present(field string) bool {
	if field == FieldSelectedSkills {
		return len(v.SelectedSkills) > 0
	}
	if b, ok := v.flag(field); ok {
		return b != nil
	}
	if s, ok := v.text(field); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

// QuestionComment is a teacher remark attached to one wizard question.
type QuestionComment struct {
	ID         string    `json:"id"`
	Comment    string    `json:"comment"`
	Timestamp  time.Time `json:"timestamp"`
	TeacherID  uint      `json:"teacher_id"`
	QuestionID string    `json:"question_id"`
}

// FeedbackItem is one teacher review entry.
type FeedbackItem struct {
	Text                string                     `json:"text"`
	Date                time.Time                  `json:"date"`
	TeacherID           uint                       `json:"teacher_id"`
	SelectedSkills      []string                   `json:"selected_skills"`
	SkillsJustification string                     `json:"skills_justification"`
	QuestionComments    map[string]QuestionComment `json:"question_comments"`
}
