package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/utils"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

// WorkflowCatalog returns the static wizard taxonomy for clients.
func WorkflowCatalog() fiber.Handler {
	catalog := buildWorkflowCatalog()
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
		return utils.SendSuccess(c, "workflow catalog", catalog)
	}
}

func buildWorkflowCatalog() dto.WorkflowCatalogResponse {
	steps := make([]dto.WorkflowStep, 0, len(workflow.Steps()))
	for _, step := range workflow.Steps() {
		steps = append(steps, dto.WorkflowStep{ID: step, Info: step.Info()})
	}

	ids := workflow.SkillIDs()
	skills := make([]dto.SkillEntry, 0, len(ids))
	for _, id := range ids {
		skills = append(skills, dto.SkillEntry{ID: id, Label: workflow.SkillLabel(id)})
	}

	return dto.WorkflowCatalogResponse{
		Steps:     steps,
		Statuses:  workflow.Statuses(),
		Months:    workflow.Months(),
		Skills:    skills,
		Questions: workflow.Questions(),
		MaxSkills: workflow.MaxSelectedSkills,
	}
}
