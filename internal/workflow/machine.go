package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrCannotSubmit indicates the assignment is not complete enough to submit.
	ErrCannotSubmit = errors.New("cannot submit assignment")
	// ErrInvalidTransition indicates the requested status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStepLocked indicates the step is hidden or disabled for the current status.
	ErrStepLocked = errors.New("step is not available")
	// ErrUnknownQuestion indicates a feedback comment targets a question that does not exist.
	ErrUnknownQuestion = errors.New("unknown question")
)

// IncompleteError lists the fields that block a transition, grouped by step.
type IncompleteError struct {
	Missing map[Step][]string
}

func (e *IncompleteError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, step := range orderedSteps {
		if fields := e.Missing[step]; len(fields) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", step, strings.Join(fields, ", ")))
		}
	}
	return fmt.Sprintf("%s: missing %s", ErrCannotSubmit.Error(), strings.Join(parts, "; "))
}

func (e *IncompleteError) Unwrap() error { return ErrCannotSubmit }

// Fields flattens the missing fields in wizard order.
func (e *IncompleteError) Fields() []string {
	var out []string
	for _, step := range orderedSteps {
		out = append(out, e.Missing[step]...)
	}
	return out
}

// TransitionError reports a status change that the machine refuses.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition.Error(), e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// RevisionSnapshot preserves the state of an assignment when a revision is requested.
type RevisionSnapshot struct {
	Revision   int            `json:"revision"`
	Status     Status         `json:"status"`
	Values     Values         `json:"values"`
	Feedback   []FeedbackItem `json:"feedback"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Record is the workflow view of an assignment.
type Record struct {
	Status          Status
	Values          Values
	Feedback        []FeedbackItem
	SubmittedAt     *time.Time
	VerifiedAt      *time.Time
	CurrentRevision int
	RevisionHistory []RevisionSnapshot
}

// Decision is a teacher's review outcome.
type Decision struct {
	Status   Status
	Feedback *FeedbackItem
}

func isLocked(status Status) bool {
	switch status {
	case StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusPublished:
		return true
	default:
		return false
	}
}

// VisibleSteps returns the steps shown for an assignment in the given status.
func VisibleSteps(status Status) []Step {
	if isLocked(status) {
		return []Step{StepAssignmentPreview, StepTeacherFeedback}
	}
	steps := append(ContentSteps(), StepReviewSubmit)
	if status == StatusNeedsRevision {
		steps = append(steps, StepTeacherFeedback)
	}
	return steps
}

// StepState describes one visible wizard step.
type StepState struct {
	Step     Step     `json:"step"`
	Info     StepInfo `json:"info"`
	Enabled  bool     `json:"enabled"`
	Complete bool     `json:"complete"`
}

// Navigation computes the visible steps with their enabled/complete flags.
// For editable statuses a step is enabled only while every earlier content
// step is navigation-complete; basic-info is always enabled.
func Navigation(status Status, values Values) []StepState {
	visible := VisibleSteps(status)
	states := make([]StepState, 0, len(visible))

	if isLocked(status) {
		for _, step := range visible {
			states = append(states, StepState{Step: step, Info: step.Info(), Enabled: true, Complete: true})
		}
		return states
	}

	reachable := true
	for _, step := range visible {
		state := StepState{Step: step, Info: step.Info()}
		switch {
		case step == StepBasicInfo, step == StepTeacherFeedback:
			state.Enabled = true
		default:
			state.Enabled = reachable
		}
		state.Complete = IsStepComplete(step, values)
		if step.IsContent() && !IsStepNavigationComplete(step, values) {
			reachable = false
		}
		states = append(states, state)
	}
	return states
}

// CanNavigate reports whether the step is visible and enabled.
func CanNavigate(status Status, values Values, to Step) bool {
	for _, state := range Navigation(status, values) {
		if state.Step == to {
			return state.Enabled
		}
	}
	return false
}

// Next returns the step after from, provided from is enabled and
// navigation-complete.
func Next(status Status, values Values, from Step) (Step, error) {
	visible := VisibleSteps(status)
	idx := -1
	for i, step := range visible {
		if step == from {
			idx = i
			break
		}
	}
	if idx < 0 || !CanNavigate(status, values, from) {
		return "", fmt.Errorf("%w: %s", ErrStepLocked, from)
	}
	if missing := MissingFields(from, values, ForNavigation); len(missing) > 0 {
		return "", &IncompleteError{Missing: map[Step][]string{from: missing}}
	}
	if idx == len(visible)-1 {
		return from, nil
	}
	return visible[idx+1], nil
}

// CanEdit reports whether the student may change content in this status.
func CanEdit(status Status) bool {
	return status.IsEditable()
}

// Submit moves an editable assignment to SUBMITTED when every content step
// is fully complete.
func Submit(r *Record, now time.Time) error {
	if !r.Status.IsEditable() {
		return &TransitionError{From: r.Status, To: StatusSubmitted}
	}
	if missing := MissingByStep(r.Values, ForSubmission); len(missing) > 0 {
		return &IncompleteError{Missing: missing}
	}

	submittedAt := now
	r.SubmittedAt = &submittedAt
	r.Status = StatusSubmitted
	return nil
}

var reviewTargets = map[Status]map[Status]bool{
	StatusSubmitted: {
		StatusUnderReview:   true,
		StatusApproved:      true,
		StatusNeedsRevision: true,
		StatusRejected:      true,
	},
	StatusUnderReview: {
		StatusApproved:      true,
		StatusNeedsRevision: true,
		StatusRejected:      true,
	},
}

// Review applies a teacher decision to a submitted assignment.
func Review(r *Record, decision Decision, now time.Time) error {
	if !reviewTargets[r.Status][decision.Status] {
		return &TransitionError{From: r.Status, To: decision.Status}
	}

	if decision.Feedback != nil {
		if unknown := UnknownQuestionKeys(*decision.Feedback); len(unknown) > 0 {
			return fmt.Errorf("%w: %s", ErrUnknownQuestion, strings.Join(unknown, ", "))
		}
		item := normalizeFeedbackItem(*decision.Feedback)
		if item.Date.IsZero() {
			item.Date = now
		}
		r.Feedback = append(r.Feedback, item)
	}

	from := r.Status
	r.Status = decision.Status
	if decision.Status == StatusUnderReview {
		return nil
	}

	verifiedAt := now
	r.VerifiedAt = &verifiedAt

	if decision.Status == StatusNeedsRevision {
		snapshot := RevisionSnapshot{
			Revision:   r.CurrentRevision,
			Status:     from,
			Values:     r.Values.Clone(),
			Feedback:   append([]FeedbackItem{}, r.Feedback...),
			RecordedAt: now,
		}
		r.RevisionHistory = append(r.RevisionHistory, snapshot)
		r.CurrentRevision++
	}
	return nil
}

// Publish showcases an approved assignment on the public portfolio.
func Publish(r *Record) error {
	if r.Status != StatusApproved {
		return &TransitionError{From: r.Status, To: StatusPublished}
	}
	r.Status = StatusPublished
	return nil
}
