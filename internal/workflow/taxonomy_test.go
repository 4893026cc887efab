package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStepsOrder(t *testing.T) {
	require.Equal(t, []Step{
		"basic-info", "role-originality", "skills-reflection", "process-challenges",
		"review-submit", "assignment-preview", "teacher-feedback",
	}, Steps())

	for _, step := range Steps() {
		require.NotEmpty(t, step.Info().Title)
	}
}

func TestParseStep(t *testing.T) {
	step, err := ParseStep(" Review-Submit ")
	require.NoError(t, err)
	require.Equal(t, StepReviewSubmit, step)

	_, err = ParseStep("payment")
	require.ErrorIs(t, err, ErrUnknownStep)
}

func TestParseStatusAliases(t *testing.T) {
	cases := map[string]Status{
		"draft":          StatusDraft,
		"SUBMITTED":      StatusSubmitted,
		"under review":   StatusUnderReview,
		"needs-revision": StatusNeedsRevision,
		"verified":       StatusApproved,
		"published":      StatusPublished,
		"in_progress":    StatusDraft,
		"completed":      StatusApproved,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseStatus("archived")
	require.ErrorIs(t, err, ErrUnknownStatus)
	require.Len(t, Statuses(), 9)
}

func TestParseMonth(t *testing.T) {
	month, err := ParseMonth("september")
	require.NoError(t, err)
	require.Equal(t, Month("September"), month)

	_, err = ParseMonth("Sept")
	require.ErrorIs(t, err, ErrUnknownMonth)
}

func TestQuestionTableCoversReflectionFields(t *testing.T) {
	for _, field := range reflectionFields {
		found := false
		for _, q := range Questions() {
			if q.Field == field {
				found = true
				require.True(t, q.RichText, field)
			}
		}
		require.True(t, found, field)
	}
}

func TestStatusSpellingsIncludeLegacyAliases(t *testing.T) {
	require.Equal(t, []string{"APPROVED", "approved", "COMPLETED", "completed", "VERIFIED", "verified"}, StatusApproved.Spellings())
	require.Equal(t, []string{"SUBMITTED", "submitted"}, StatusSubmitted.Spellings())
}
