package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/config"
	"github.com/noah-isme/portfolio-api/internal/draft"
	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/handler"
	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/router"
	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

var (
	studentUser = session.User{ID: 11, Role: session.RoleStudent}
	peerUser    = session.User{ID: 12, Role: session.RoleStudent}
	teacherUser = session.User{ID: 21, Role: session.RoleTeacher}
)

type noopStorage struct{}

func (noopStorage) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://cdn.example.com/" + name, nil
}

func (noopStorage) Delete(context.Context, string) error { return nil }

func setupPortfolioApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := setupHandlerDB(t)
	require.NoError(t, db.Create(&[]models.User{
		{ID: studentUser.ID, Name: "Ana Lima", Email: "ana@example.com", Role: "student"},
		{ID: peerUser.ID, Name: "Ben Ito", Email: "ben@example.com", Role: "student"},
		{ID: teacherUser.ID, Name: "Ms Rivera", Email: "rivera@example.com", Role: "teacher"},
	}).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	assignmentRepo := repository.NewAssignmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	drafts := draft.NewMemoryStore()

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), userRepo, nil, "", nil, nil, logger)
	uploads := service.NewUploadService(noopStorage{}, repository.NewUploadRepository(db), 5, logger)
	portfolio := service.NewPortfolioService(assignmentRepo, userRepo, nil, 0, logger)
	assignments := service.NewAssignmentService(assignmentRepo, drafts, activity, notifications, uploads, portfolio, validate, logger)
	reviews := service.NewReviewService(assignmentRepo, activity, notifications, portfolio, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Portfolio Test", RateLimitPerMinute: 1000}, router.Dependencies{
		AssignmentHandler:   handler.NewAssignmentHandler(assignments, reviews, logger),
		ReviewHandler:       handler.NewReviewHandler(reviews, logger),
		DraftHandler:        handler.NewDraftHandler(service.NewDraftService(drafts, assignmentRepo, validate), logger),
		UploadHandler:       handler.NewUploadHandler(uploads, logger),
		PortfolioHandler:    handler.NewPortfolioHandler(portfolio, logger),
		NotificationHandler: handler.NewNotificationHandler(notifications, logger, 0),
		JWTMiddleware:       fakeAuth,
		OptionalJWT:         optionalFakeAuth,
	})

	return app, db
}

func completeValues() workflow.Values {
	return workflow.Values{
		Title:               "Volcano model",
		Subject:             "Science",
		ArtifactType:        "Project",
		Month:               "March",
		IsTeamWork:          boolRef(false),
		IsOriginalWork:      boolRef(true),
		SelectedSkills:      []string{"creativity", "research"},
		SkillsJustification: "<p>I researched eruptions</p>",
		PrideReason:         "It actually erupts",
		CreationProcess:     "Papier-mache over a bottle",
		Learnings:           "Chemistry of baking soda",
		Challenges:          "Drying time",
		Improvements:        "Paint it earlier",
		Files: []workflow.FileRef{
			{URL: "https://cdn.example.com/volcano.jpg", Name: "volcano.jpg"},
			{URL: "https://cdn.example.com/sketch.jpg", Name: "sketch.jpg", IsProcessDocumentation: true},
		},
	}
}

func createAssignment(t *testing.T, app *fiber.App, values workflow.Values) dto.AssignmentResponse {
	t.Helper()
	teacherID := teacherUser.ID
	resp, env := doJSON(t, app, http.MethodPost, "/api/v2/portfolio/assignments", &studentUser, dto.AssignmentCreateRequest{
		TeacherID: &teacherID,
		Values:    values,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)

	var created dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created
}

func TestAssignmentHandlerSubmissionLifecycle(t *testing.T) {
	app, _ := setupPortfolioApp(t)

	created := createAssignment(t, app, workflow.Values{Title: "Volcano model"})
	require.Equal(t, workflow.StatusDraft, created.Status)
	require.True(t, created.Editable)
	base := "/api/v2/portfolio/assignments/" + created.ID

	resp, env := doJSON(t, app, http.MethodPost, base+"/submit", &studentUser, nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	var missing struct {
		Missing map[string][]string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(env.Details, &missing))
	require.Contains(t, missing.Missing[string(workflow.StepBasicInfo)], workflow.FieldSubject)

	resp, _ = doJSON(t, app, http.MethodPut, base, &studentUser, dto.AssignmentUpdateRequest{Values: completeValues()})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = doJSON(t, app, http.MethodPost, base+"/submit", &studentUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var submitted dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	require.Equal(t, workflow.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	resp, _ = doJSON(t, app, http.MethodPut, base, &studentUser, dto.AssignmentUpdateRequest{Values: completeValues()})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, base, &peerUser, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env = doJSON(t, app, http.MethodGet, "/api/v2/notifications", &teacherUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var inbox []dto.NotificationResponse
	require.NoError(t, json.Unmarshal(env.Data, &inbox))
	require.Len(t, inbox, 1)
	require.Equal(t, service.NotificationAssignmentSubmitted, inbox[0].Type)
}

func TestReviewHandlerApproveAndPublish(t *testing.T) {
	app, _ := setupPortfolioApp(t)

	created := createAssignment(t, app, completeValues())
	base := "/api/v2/portfolio/assignments/" + created.ID
	resp, _ := doJSON(t, app, http.MethodPost, base+"/submit", &studentUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v2/review/assignments", &studentUser, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env := doJSON(t, app, http.MethodGet, "/api/v2/review/assignments", &teacherUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var queue []dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	require.Len(t, queue, 1)
	require.Equal(t, created.ID, queue[0].ID)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v2/review/assignments/"+created.ID+"/review", &teacherUser, dto.ReviewDecisionRequest{Status: "ARCHIVED"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, env = doJSON(t, app, http.MethodPost, "/api/v2/review/assignments/"+created.ID+"/review", &teacherUser, dto.ReviewDecisionRequest{
		Status:   "APPROVED",
		Feedback: &dto.FeedbackInput{Text: "Lovely documentation"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var decision dto.ReviewDecisionResponse
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	require.Equal(t, workflow.StatusApproved, decision.Assignment.Status)
	require.Len(t, decision.Assignment.Feedback, 1)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v2/review/assignments/"+created.ID+"/review", &teacherUser, dto.ReviewDecisionRequest{Status: "REJECTED"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, env = doJSON(t, app, http.MethodPost, base+"/publish", &studentUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var published dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &published))
	require.Equal(t, workflow.StatusPublished, published.Status)

	resp, env = doJSON(t, app, http.MethodGet, base+"/history", &studentUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history []dto.ActivityResponse
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.GreaterOrEqual(t, len(history), 3)

	resp, env = doJSON(t, app, http.MethodGet, "/api/v2/public/portfolio/11", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var portfolio dto.PortfolioResponse
	require.NoError(t, json.Unmarshal(env.Data, &portfolio))
	require.Equal(t, "Ana Lima", portfolio.StudentName)
	require.Len(t, portfolio.Items, 1)
	require.Len(t, portfolio.Items[0].Files, 1)
}

func TestAssignmentHandlerRequiresAuthentication(t *testing.T) {
	app, _ := setupPortfolioApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v2/portfolio/assignments", nil, nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v2/portfolio/assignments/does-not-exist", &studentUser, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAssignmentHandlerNavigateAndSanity(t *testing.T) {
	app, _ := setupPortfolioApp(t)

	created := createAssignment(t, app, workflow.Values{Title: "Poem"})
	base := "/api/v2/portfolio/assignments/" + created.ID

	resp, _ := doJSON(t, app, http.MethodPost, base+"/navigate", &studentUser, dto.StepNavigationRequest{From: "basic-info"})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, base+"/navigate", &studentUser, dto.StepNavigationRequest{From: "checkout"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, env := doJSON(t, app, http.MethodGet, base+"/sanity", &teacherUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var sanity dto.SanityCheckResponse
	require.NoError(t, json.Unmarshal(env.Data, &sanity))
	require.Equal(t, created.ID, sanity.AssignmentID)
	require.NotEmpty(t, sanity.Issues)
}

func TestAssignmentHandlerListAndDelete(t *testing.T) {
	app, _ := setupPortfolioApp(t)

	created := createAssignment(t, app, workflow.Values{Title: "Clay pot"})
	createAssignment(t, app, workflow.Values{Title: "Watercolour"})

	resp, env := doJSON(t, app, http.MethodGet, "/api/v2/portfolio/assignments?page_size=1", &studentUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var meta struct {
		Total    int64 `json:"total"`
		PageSize int   `json:"page_size"`
	}
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	require.EqualValues(t, 2, meta.Total)
	require.Equal(t, 1, meta.PageSize)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v2/portfolio/assignments/"+created.ID, &peerUser, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v2/portfolio/assignments/"+created.ID, &studentUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v2/portfolio/assignments/"+created.ID, &studentUser, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDraftHandlerRoundTrip(t *testing.T) {
	app, _ := setupPortfolioApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v2/portfolio/drafts/new", &studentUser, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, env := doJSON(t, app, http.MethodPut, "/api/v2/portfolio/drafts/new", &studentUser, dto.DraftSaveRequest{
		Step:   "skills-reflection",
		Values: workflow.Values{Title: "Half done"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

	resp, env = doJSON(t, app, http.MethodGet, "/api/v2/portfolio/drafts/new", &studentUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var saved dto.DraftResponse
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	require.Equal(t, workflow.StepSkillsReflection, saved.Step)
	require.Equal(t, "Half done", saved.Values.Title)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v2/portfolio/drafts/new", &teacherUser, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v2/portfolio/drafts/new", &studentUser, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
