package workflow

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var reflectionFields = []string{
	FieldTeamContribution,
	FieldOriginalityExplanation,
	FieldSkillsJustification,
	FieldPrideReason,
	FieldCreationProcess,
	FieldLearnings,
	FieldChallenges,
	FieldImprovements,
	FieldAcknowledgments,
}

// SanityChecker audits a submission for likely-incomplete content. Its
// findings are advisory and never block a transition.
type SanityChecker struct {
	policy *bluemonday.Policy
}

// NewSanityChecker builds a checker that strips all markup before inspecting text.
func NewSanityChecker() *SanityChecker {
	return &SanityChecker{policy: bluemonday.StrictPolicy()}
}

// PlainText removes markup and surrounding whitespace.
func (c *SanityChecker) PlainText(value string) string {
	if value == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(value)))
}

// Check returns human-readable issues; an empty slice means nothing was found.
func (c *SanityChecker) Check(values Values) []string {
	issues := []string{}

	if c.PlainText(values.Title) == "" {
		issues = append(issues, "title is missing")
	}
	if strings.TrimSpace(values.Subject) == "" {
		issues = append(issues, "subject is missing")
	}
	if strings.TrimSpace(values.ArtifactType) == "" {
		issues = append(issues, "artifact type is missing")
	}
	if !values.HasArtifact() {
		issues = append(issues, "no artifact attached (file, YouTube link or external link)")
	}
	if len(values.SelectedSkills) > MaxSelectedSkills {
		issues = append(issues, fmt.Sprintf("too many skills selected (%d > %d)", len(values.SelectedSkills), MaxSelectedSkills))
	}

	for _, field := range reflectionFields {
		raw, _ := values.text(field)
		if raw == "" {
			continue
		}
		if c.PlainText(raw) == "" {
			issues = append(issues, fmt.Sprintf("%s contains only formatting", field))
		}
	}

	return issues
}
