package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanityCheckFlagsMarkupOnlyTitle(t *testing.T) {
	checker := NewSanityChecker()
	issues := checker.Check(Values{
		Title:        "<p></p>",
		Subject:      "Science",
		ArtifactType: "Project",
		Files:        []FileRef{{URL: "https://cdn.example.com/a.png", Name: "a.png"}},
	})

	require.Equal(t, []string{"title is missing"}, issues)
}

func TestSanityCheckCleanSubmission(t *testing.T) {
	require.Empty(t, NewSanityChecker().Check(completeValues()))
}

func TestSanityCheckTooManySkills(t *testing.T) {
	values := completeValues()
	values.SelectedSkills = SkillIDs()[:21]

	issues := NewSanityChecker().Check(values)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0], "too many skills")
}

func TestSanityCheckReflectionOnlyFormatting(t *testing.T) {
	values := completeValues()
	values.PrideReason = "<p><br></p>&nbsp;"
	values.Acknowledgments = ""

	issues := NewSanityChecker().Check(values)
	require.Equal(t, []string{"pride_reason contains only formatting"}, issues)
}

func TestSanityCheckMissingArtifacts(t *testing.T) {
	values := completeValues()
	values.Files = nil

	issues := NewSanityChecker().Check(values)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0], "no artifact")
}

func TestPlainTextUnescapesEntities(t *testing.T) {
	require.Equal(t, "Tom & Jerry", NewSanityChecker().PlainText("<b>Tom &amp; Jerry</b>"))
}
