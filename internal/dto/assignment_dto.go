package dto

import (
	"time"

	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

// AssignmentCreateRequest starts a new draft assignment.
type AssignmentCreateRequest struct {
	TeacherID *uint           `json:"teacher_id" validate:"omitempty,gt=0"`
	Values    workflow.Values `json:"values"`
}

// AssignmentUpdateRequest replaces the wizard values of an editable assignment.
type AssignmentUpdateRequest struct {
	Values workflow.Values `json:"values"`
}

// StepNavigationRequest asks to move past the given step.
type StepNavigationRequest struct {
	From string `json:"from" validate:"required"`
}

// AssignmentListQuery describes listing filters accepted on the query string.
type AssignmentListQuery struct {
	Status    string `query:"status"`
	TeacherID uint   `query:"teacher_id"`
	Subject   string `query:"subject" validate:"omitempty,max=128"`
	Search    string `query:"search" validate:"omitempty,max=255"`
	Sort      string `query:"sort"`
	Page      int    `query:"page" validate:"omitempty,gte=1"`
	PageSize  int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// AssignmentResponse is the canonical view of an assignment.
type AssignmentResponse struct {
	ID              string                      `json:"id"`
	StudentID       uint                        `json:"student_id"`
	TeacherID       *uint                       `json:"teacher_id"`
	Status          workflow.Status             `json:"status"`
	Values          workflow.Values             `json:"values"`
	Feedback        []workflow.FeedbackItem     `json:"feedback"`
	Editable        bool                        `json:"editable"`
	Steps           []workflow.StepState        `json:"steps"`
	CurrentRevision int                         `json:"current_revision"`
	RevisionHistory []workflow.RevisionSnapshot `json:"revision_history"`
	SubmittedAt     *time.Time                  `json:"submitted_at"`
	VerifiedAt      *time.Time                  `json:"verified_at"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// NewAssignmentResponse combines the stored row with its normalised workflow record.
func NewAssignmentResponse(model models.Assignment, record workflow.Record) AssignmentResponse {
	history := record.RevisionHistory
	if history == nil {
		history = []workflow.RevisionSnapshot{}
	}
	feedback := record.Feedback
	if feedback == nil {
		feedback = []workflow.FeedbackItem{}
	}

	return AssignmentResponse{
		ID:              model.ID,
		StudentID:       model.StudentID,
		TeacherID:       model.TeacherID,
		Status:          record.Status,
		Values:          record.Values,
		Feedback:        feedback,
		Editable:        workflow.CanEdit(record.Status),
		Steps:           workflow.Navigation(record.Status, record.Values),
		CurrentRevision: record.CurrentRevision,
		RevisionHistory: history,
		SubmittedAt:     record.SubmittedAt,
		VerifiedAt:      record.VerifiedAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Items    []AssignmentResponse `json:"items"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// StepNavigationResponse reports the step the wizard should show next.
type StepNavigationResponse struct {
	Next  workflow.Step        `json:"next"`
	Steps []workflow.StepState `json:"steps"`
}

// SanityCheckResponse lists advisory issues found in a submission.
type SanityCheckResponse struct {
	AssignmentID string   `json:"assignment_id"`
	Issues       []string `json:"issues"`
}

// FeedbackInput is a teacher's review comment.
type FeedbackInput struct {
	Text                string            `json:"text" validate:"omitempty,max=10000"`
	SelectedSkills      []string          `json:"selected_skills" validate:"omitempty,max=20,dive,required"`
	SkillsJustification string            `json:"skills_justification" validate:"omitempty,max=10000"`
	QuestionComments    map[string]string `json:"question_comments"`
}

// ReviewDecisionRequest records a teacher decision.
type ReviewDecisionRequest struct {
	Status   string         `json:"status" validate:"required,oneof=UNDER_REVIEW APPROVED NEEDS_REVISION REJECTED"`
	Feedback *FeedbackInput `json:"feedback"`
}

// ReviewDecisionResponse returns the updated assignment plus advisory warnings.
type ReviewDecisionResponse struct {
	Assignment AssignmentResponse `json:"assignment"`
	Warnings   []string           `json:"warnings"`
}

// DraftSaveRequest stores wizard state for later.
type DraftSaveRequest struct {
	Step   string          `json:"step" validate:"required"`
	Values workflow.Values `json:"values"`
}

// DraftResponse returns a previously saved draft.
type DraftResponse struct {
	DraftID string          `json:"draft_id"`
	Step    workflow.Step   `json:"step"`
	Values  workflow.Values `json:"values"`
	SavedAt time.Time       `json:"saved_at"`
}

// ActivityResponse is one audit entry of an assignment.
type ActivityResponse struct {
	ID        uint                   `json:"id"`
	ActorID   uint                   `json:"actor_id"`
	ActorRole string                 `json:"actor_role"`
	Action    string                 `json:"action"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewActivityResponse converts an activity log row.
func NewActivityResponse(model models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range model.Metadata {
		metadata[key] = value
	}
	return ActivityResponse{
		ID:        model.ID,
		ActorID:   model.ActorID,
		ActorRole: model.ActorRole,
		Action:    model.Action,
		Metadata:  metadata,
		CreatedAt: model.CreatedAt,
	}
}

// WorkflowCatalogResponse exposes the static wizard taxonomy.
type WorkflowCatalogResponse struct {
	Steps     []WorkflowStep      `json:"steps"`
	Statuses  []workflow.Status   `json:"statuses"`
	Months    []workflow.Month    `json:"months"`
	Skills    []SkillEntry        `json:"skills"`
	Questions []workflow.Question `json:"questions"`
	MaxSkills int                 `json:"max_skills"`
}

// WorkflowStep pairs a step id with its display copy.
type WorkflowStep struct {
	ID   workflow.Step     `json:"id"`
	Info workflow.StepInfo `json:"info"`
}

// SkillEntry is one catalogue skill.
type SkillEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
