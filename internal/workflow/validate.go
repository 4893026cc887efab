package workflow

import "fmt"

// Strength selects how strictly a step is validated.
type Strength int

const (
	// ForNavigation only requires the step's own answers; it gates "Next".
	ForNavigation Strength = iota
	// ForSubmission additionally requires artifacts and a valid skill selection; it gates submission.
	ForSubmission
)

// MissingFields lists what keeps the step from being complete. Entries are
// field names, optionally followed by ": reason".
func MissingFields(step Step, values Values, strength Strength) []string {
	switch step {
	case StepBasicInfo, StepRoleOriginality, StepSkillsReflection, StepProcessChallenges:
		return contentStepMissing(step, values, strength)
	case StepReviewSubmit:
		var missing []string
		for _, content := range contentSteps {
			missing = append(missing, contentStepMissing(content, values, strength)...)
		}
		return missing
	case StepAssignmentPreview, StepTeacherFeedback:
		return nil
	default:
		return []string{"step: " + string(step)}
	}
}

func contentStepMissing(step Step, values Values, strength Strength) []string {
	var missing []string
	for _, q := range QuestionsFor(step) {
		if !q.Required || !q.Visible(values) {
			continue
		}
		if !values.present(q.Field) {
			missing = append(missing, q.Field)
		}
	}

	if strength < ForSubmission {
		return missing
	}

	switch step {
	case StepBasicInfo:
		if !values.HasArtifact() {
			missing = append(missing, FieldArtifacts)
		}
		if values.present(FieldMonth) {
			if _, err := ParseMonth(values.Month); err != nil {
				missing = append(missing, FieldMonth+": unknown month")
			}
		}
	case StepSkillsReflection:
		missing = append(missing, skillProblems(values.SelectedSkills)...)
	}
	return missing
}

func skillProblems(skills []string) []string {
	var problems []string
	if len(skills) > MaxSelectedSkills {
		problems = append(problems, fmt.Sprintf("%s: too many skills (%d > %d)", FieldSelectedSkills, len(skills), MaxSelectedSkills))
	}
	seen := make(map[string]struct{}, len(skills))
	for _, id := range skills {
		if _, dup := seen[id]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate skill %q", FieldSelectedSkills, id))
			continue
		}
		seen[id] = struct{}{}
		if !KnownSkill(id) {
			problems = append(problems, fmt.Sprintf("%s: unknown skill %q", FieldSelectedSkills, id))
		}
	}
	return problems
}

// IsStepNavigationComplete reports whether the student may move past the step.
func IsStepNavigationComplete(step Step, values Values) bool {
	return len(MissingFields(step, values, ForNavigation)) == 0
}

// IsStepComplete reports whether the step is ready for submission.
func IsStepComplete(step Step, values Values) bool {
	return len(MissingFields(step, values, ForSubmission)) == 0
}

// MissingByStep runs the validator over every content step and returns only
// the steps with problems.
func MissingByStep(values Values, strength Strength) map[Step][]string {
	out := make(map[Step][]string)
	for _, step := range contentSteps {
		if missing := MissingFields(step, values, strength); len(missing) > 0 {
			out[step] = missing
		}
	}
	return out
}
