// Package workflow implements the assignment submission wizard: the step and
// status taxonomy, migration of legacy payloads, per-step validation, the
// submission/review state machine and the advisory sanity checker.
//
// Everything in this package is pure; persistence and transport live in the
// service and handler layers.
package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownStep indicates a step identifier outside the wizard taxonomy.
	ErrUnknownStep = errors.New("unknown step")
	// ErrUnknownStatus indicates a status string outside the canonical set.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrUnknownMonth indicates a month name outside the twelve known values.
	ErrUnknownMonth = errors.New("unknown month")
)

// Step identifies one page of the submission wizard.
type Step string

const (
	StepBasicInfo         Step = "basic-info"
	StepRoleOriginality   Step = "role-originality"
	StepSkillsReflection  Step = "skills-reflection"
	StepProcessChallenges Step = "process-challenges"
	StepReviewSubmit      Step = "review-submit"
	StepAssignmentPreview Step = "assignment-preview"
	StepTeacherFeedback   Step = "teacher-feedback"
)

// StepInfo carries the display copy for a wizard step.
type StepInfo struct {
	Title       string `json:"title"`
	Header      string `json:"header"`
	Description string `json:"description"`
}

var orderedSteps = []Step{
	StepBasicInfo,
	StepRoleOriginality,
	StepSkillsReflection,
	StepProcessChallenges,
	StepReviewSubmit,
	StepAssignmentPreview,
	StepTeacherFeedback,
}

// contentSteps are the steps that collect data from the student.
var contentSteps = []Step{
	StepBasicInfo,
	StepRoleOriginality,
	StepSkillsReflection,
	StepProcessChallenges,
}

var stepInfo = map[Step]StepInfo{
	StepBasicInfo: {
		Title:       "Basic Info",
		Header:      "Tell us about your work",
		Description: "Give the assignment a title, classify it and attach at least one artifact.",
	},
	StepRoleOriginality: {
		Title:       "Role & Originality",
		Header:      "Who made this?",
		Description: "Explain whether this was team work and whether the work is original.",
	},
	StepSkillsReflection: {
		Title:       "Skills & Reflection",
		Header:      "What did you practise?",
		Description: "Pick the skills you demonstrated and say why you are proud of the result.",
	},
	StepProcessChallenges: {
		Title:       "Process & Challenges",
		Header:      "How did it go?",
		Description: "Describe how you made it, what you learned and what you would improve.",
	},
	StepReviewSubmit: {
		Title:       "Review & Submit",
		Header:      "Check everything",
		Description: "Review your answers before sending the assignment to your teacher.",
	},
	StepAssignmentPreview: {
		Title:       "Preview",
		Header:      "Your submission",
		Description: "This is how your assignment appears to reviewers.",
	},
	StepTeacherFeedback: {
		Title:       "Teacher Feedback",
		Header:      "Feedback from your teacher",
		Description: "Comments and decisions recorded by your reviewing teacher.",
	},
}

// Steps returns the wizard steps in display order.
func Steps() []Step {
	steps := make([]Step, len(orderedSteps))
	copy(steps, orderedSteps)
	return steps
}

// ContentSteps returns the data-entry steps in order.
func ContentSteps() []Step {
	steps := make([]Step, len(contentSteps))
	copy(steps, contentSteps)
	return steps
}

// ParseStep converts a raw identifier into a Step.
func ParseStep(value string) (Step, error) {
	step := Step(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := stepInfo[step]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, value)
	}
	return step, nil
}

// Info returns the display copy of the step.
func (s Step) Info() StepInfo {
	return stepInfo[s]
}

// IsContent reports whether the step collects student input.
func (s Step) IsContent() bool {
	for _, step := range contentSteps {
		if step == s {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of an assignment.
type Status string

const (
	StatusNotStarted    Status = "NOT_STARTED"
	StatusDraft         Status = "DRAFT"
	StatusSubmitted     Status = "SUBMITTED"
	StatusUnderReview   Status = "UNDER_REVIEW"
	StatusNeedsRevision Status = "NEEDS_REVISION"
	StatusApproved      Status = "APPROVED"
	StatusRejected      Status = "REJECTED"
	StatusPublished     Status = "PUBLISHED"
	StatusOverdue       Status = "OVERDUE"
)

var statuses = []Status{
	StatusNotStarted,
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusNeedsRevision,
	StatusApproved,
	StatusRejected,
	StatusPublished,
	StatusOverdue,
}

// legacy spellings observed in stored rows
var statusAliases = map[string]Status{
	"VERIFIED":    StatusApproved,
	"COMPLETED":   StatusApproved,
	"IN_PROGRESS": StatusDraft,
}

// Statuses returns every canonical status.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus normalises a stored or requested status string.
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	for _, status := range statuses {
		if string(status) == normalized {
			return status, nil
		}
	}
	if status, ok := statusAliases[normalized]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
}

// Spellings lists every stored representation that parses to s, canonical first.
func (s Status) Spellings() []string {
	out := []string{string(s), strings.ToLower(string(s))}
	aliases := make([]string, 0, len(statusAliases))
	for alias, status := range statusAliases {
		if status == s {
			aliases = append(aliases, alias)
		}
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		out = append(out, alias, strings.ToLower(alias))
	}
	return out
}

// IsEditable reports whether the owning student may change content fields.
func (s Status) IsEditable() bool {
	switch s {
	case StatusNotStarted, StatusDraft, StatusNeedsRevision, StatusOverdue:
		return true
	default:
		return false
	}
}

// IsShowcased reports whether the assignment may appear on the public portfolio.
func (s Status) IsShowcased() bool {
	return s == StatusApproved || s == StatusPublished
}

// Month is one of the twelve calendar month names.
type Month string

var months = []Month{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Months returns the month names in calendar order.
func Months() []Month {
	out := make([]Month, len(months))
	copy(out, months)
	return out
}

// ParseMonth matches a month name case-insensitively.
func ParseMonth(value string) (Month, error) {
	trimmed := strings.TrimSpace(value)
	for _, month := range months {
		if strings.EqualFold(string(month), trimmed) {
			return month, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMonth, value)
}
