package workflow

import (
	"fmt"
	"sort"
)

// MaxSelectedSkills is the soft cap on skills per assignment.
const MaxSelectedSkills = 20

var knownSkills = map[string]string{
	"critical-thinking":    "Critical Thinking",
	"creativity":           "Creativity",
	"collaboration":        "Collaboration",
	"communication":        "Communication",
	"problem-solving":      "Problem Solving",
	"research":             "Research",
	"self-management":      "Self Management",
	"leadership":           "Leadership",
	"empathy":              "Empathy",
	"digital-literacy":     "Digital Literacy",
	"data-analysis":        "Data Analysis",
	"design-thinking":      "Design Thinking",
	"public-speaking":      "Public Speaking",
	"writing":              "Writing",
	"numeracy":             "Numeracy",
	"scientific-inquiry":   "Scientific Inquiry",
	"coding":               "Coding",
	"visual-arts":          "Visual Arts",
	"performing-arts":      "Performing Arts",
	"global-awareness":     "Global Awareness",
	"ethical-reasoning":    "Ethical Reasoning",
	"resilience":           "Resilience",
	"time-management":      "Time Management",
	"project-management":   "Project Management",
	"entrepreneurship":     "Entrepreneurship",
	"environmental-action": "Environmental Action",
}

// KnownSkill reports whether id is in the skill catalogue.
func KnownSkill(id string) bool {
	_, ok := knownSkills[id]
	return ok
}

// SkillLabel returns the display label of a skill id.
func SkillLabel(id string) string {
	return knownSkills[id]
}

// SkillIDs returns the catalogue ids sorted alphabetically.
func SkillIDs() []string {
	ids := make([]string, 0, len(knownSkills))
	for id := range knownSkills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Condition is a declarative visibility rule: the question is shown when
// the boolean Field has been answered and equals Equals.
type Condition struct {
	Field  string `json:"field"`
	Equals bool   `json:"equals"`
}

// Holds evaluates the condition against the form values.
func (c Condition) Holds(values Values) bool {
	answer, ok := values.flag(c.Field)
	if !ok || answer == nil {
		return false
	}
	return *answer == c.Equals
}

// Question is one prompt of the wizard.
type Question struct {
	ID          string     `json:"id"`
	Step        Step       `json:"step"`
	Field       string     `json:"field"`
	Label       string     `json:"label"`
	Required    bool       `json:"required"`
	RichText    bool       `json:"rich_text"`
	VisibleWhen *Condition `json:"visible_when,omitempty"`
}

// Visible reports whether the question applies to the given values.
func (q Question) Visible(values Values) bool {
	if q.VisibleWhen == nil {
		return true
	}
	return q.VisibleWhen.Holds(values)
}

var questions = []Question{
	{ID: "title", Step: StepBasicInfo, Field: FieldTitle, Label: "Assignment title", Required: true},
	{ID: "artifact_type", Step: StepBasicInfo, Field: FieldArtifactType, Label: "Type of artifact", Required: true},
	{ID: "subject", Step: StepBasicInfo, Field: FieldSubject, Label: "Subject", Required: true},
	{ID: "month", Step: StepBasicInfo, Field: FieldMonth, Label: "Month completed", Required: true},
	{ID: "grade", Step: StepBasicInfo, Field: FieldGrade, Label: "Grade level"},

	{ID: "is_team_work", Step: StepRoleOriginality, Field: FieldIsTeamWork, Label: "Was this team work?", Required: true},
	{
		ID: "team_contribution", Step: StepRoleOriginality, Field: FieldTeamContribution,
		Label: "What was your contribution to the team?", Required: true, RichText: true,
		VisibleWhen: &Condition{Field: FieldIsTeamWork, Equals: true},
	},
	{ID: "is_original_work", Step: StepRoleOriginality, Field: FieldIsOriginalWork, Label: "Is this your original work?", Required: true},
	{
		ID: "originality_explanation", Step: StepRoleOriginality, Field: FieldOriginalityExplanation,
		Label: "Explain which parts are not original", Required: true, RichText: true,
		VisibleWhen: &Condition{Field: FieldIsOriginalWork, Equals: false},
	},

	{ID: "selected_skills", Step: StepSkillsReflection, Field: FieldSelectedSkills, Label: "Skills demonstrated", Required: true},
	{ID: "skills_justification", Step: StepSkillsReflection, Field: FieldSkillsJustification, Label: "How did you demonstrate these skills?", Required: true, RichText: true},
	{ID: "pride_reason", Step: StepSkillsReflection, Field: FieldPrideReason, Label: "Why are you proud of this work?", Required: true, RichText: true},

	{ID: "creation_process", Step: StepProcessChallenges, Field: FieldCreationProcess, Label: "How did you create it?", Required: true, RichText: true},
	{ID: "learnings", Step: StepProcessChallenges, Field: FieldLearnings, Label: "What did you learn?", Required: true, RichText: true},
	{ID: "challenges", Step: StepProcessChallenges, Field: FieldChallenges, Label: "What challenges did you face?", Required: true, RichText: true},
	{ID: "improvements", Step: StepProcessChallenges, Field: FieldImprovements, Label: "What would you improve?", Required: true, RichText: true},
	{ID: "acknowledgments", Step: StepProcessChallenges, Field: FieldAcknowledgments, Label: "Who helped you?", RichText: true},
}

var questionIndex = func() map[string]Question {
	index := make(map[string]Question, len(questions))
	for _, q := range questions {
		if _, dup := index[q.ID]; dup {
			panic(fmt.Sprintf("workflow: duplicate question id %q", q.ID))
		}
		index[q.ID] = q
	}
	return index
}()

// Questions returns the question table in wizard order.
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

// QuestionsFor returns the questions shown on a step.
func QuestionsFor(step Step) []Question {
	var out []Question
	for _, q := range questions {
		if q.Step == step {
			out = append(out, q)
		}
	}
	return out
}

// LookupQuestion finds a question by id.
func LookupQuestion(id string) (Question, bool) {
	q, ok := questionIndex[id]
	return q, ok
}
