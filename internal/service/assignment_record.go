package service

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

// valuesFromModel decodes the stored columns into wizard values. JSON columns
// that fail to decode are treated as empty. Legacy youtube links are only read
// until the row has been saved in the current shape.
func valuesFromModel(m models.Assignment) workflow.Values {
	values := workflow.Values{
		Title:                  m.Title,
		Subject:                m.Subject,
		Grade:                  m.Grade,
		ArtifactType:           m.ArtifactType,
		Month:                  m.Month,
		IsTeamWork:             m.IsTeamWork,
		TeamContribution:       m.TeamContribution,
		IsOriginalWork:         m.IsOriginalWork,
		OriginalityExplanation: m.OriginalityExplanation,
		SkillsJustification:    m.SkillsJustification,
		PrideReason:            m.PrideReason,
		CreationProcess:        m.CreationProcess,
		Learnings:              m.Learnings,
		Challenges:             m.Challenges,
		Improvements:           m.Improvements,
		Acknowledgments:        m.Acknowledgments,
	}
	values.SelectedSkills = decodeColumn[[]string](m.SelectedSkills)
	values.Files = decodeColumn[[]workflow.FileRef](m.Files)
	if !m.LinksMigrated {
		values.YouTubeLinks = decodeColumn[[]workflow.YouTubeLink](m.YouTubeLinks)
	}
	values.ExternalLinks = decodeColumn[[]workflow.ExternalLink](m.ExternalLinks)

	return workflow.Migrate(values)
}

// recordFromModel builds the workflow view of a stored assignment.
func recordFromModel(m models.Assignment) workflow.Record {
	status, err := workflow.ParseStatus(m.Status)
	if err != nil {
		status = workflow.StatusDraft
	}

	record := workflow.Record{
		Status:          status,
		Values:          valuesFromModel(m),
		Feedback:        workflow.NormalizeFeedback(json.RawMessage(m.Feedback)),
		SubmittedAt:     m.SubmittedAt,
		VerifiedAt:      m.VerifiedAt,
		CurrentRevision: m.CurrentRevision,
		RevisionHistory: decodeColumn[[]workflow.RevisionSnapshot](m.RevisionHistory),
	}
	if record.RevisionHistory == nil {
		record.RevisionHistory = []workflow.RevisionSnapshot{}
	}
	return record
}

// applyValues copies wizard values onto the row. Links are always written in
// the current shape and the row is marked migrated; the legacy youtube_links
// column is never rewritten.
func applyValues(m *models.Assignment, values workflow.Values) {
	values = workflow.Migrate(values)

	m.Title = values.Title
	m.Subject = values.Subject
	m.Grade = values.Grade
	m.ArtifactType = values.ArtifactType
	m.Month = values.Month
	m.IsTeamWork = values.IsTeamWork
	m.TeamContribution = values.TeamContribution
	m.IsOriginalWork = values.IsOriginalWork
	m.OriginalityExplanation = values.OriginalityExplanation
	m.SkillsJustification = values.SkillsJustification
	m.PrideReason = values.PrideReason
	m.CreationProcess = values.CreationProcess
	m.Learnings = values.Learnings
	m.Challenges = values.Challenges
	m.Improvements = values.Improvements
	m.Acknowledgments = values.Acknowledgments

	m.SelectedSkills = encodeColumn(values.SelectedSkills)
	m.Files = encodeColumn(values.Files)
	m.ExternalLinks = encodeColumn(values.ExternalLinks)
	m.LinksMigrated = true
}

// applyRecord writes the workflow outcome (status, feedback, history) onto the row.
func applyRecord(m *models.Assignment, record workflow.Record) {
	applyValues(m, record.Values)
	m.Status = string(record.Status)
	m.Feedback = encodeColumn(record.Feedback)
	m.SubmittedAt = record.SubmittedAt
	m.VerifiedAt = record.VerifiedAt
	m.CurrentRevision = record.CurrentRevision
	m.RevisionHistory = encodeColumn(record.RevisionHistory)
}

func decodeColumn[T any](raw datatypes.JSON) T {
	var out T
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero
	}
	return out
}

func encodeColumn(value interface{}) datatypes.JSON {
	payload, err := json.Marshal(value)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(payload)
}
