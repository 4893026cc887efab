package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/draft"
	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/observability"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrForbidden indicates the caller may not act on the assignment.
	ErrForbidden = errors.New("forbidden")
	// ErrAssignmentLocked indicates the assignment can no longer be edited by the student.
	ErrAssignmentLocked = errors.New("assignment is locked for editing")
)

// ArtifactRemover deletes stored artifacts by URL.
type ArtifactRemover interface {
	Remove(ctx context.Context, url string) error
}

// AssignmentService exposes the student side of the submission workflow.
type AssignmentService interface {
	Create(ctx context.Context, user session.User, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Get(ctx context.Context, user session.User, id string) (dto.AssignmentResponse, error)
	List(ctx context.Context, user session.User, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error)
	Update(ctx context.Context, user session.User, id string, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Navigate(ctx context.Context, user session.User, id string, payload dto.StepNavigationRequest) (dto.StepNavigationResponse, error)
	Submit(ctx context.Context, user session.User, id string) (dto.AssignmentResponse, error)
	SanityCheck(ctx context.Context, user session.User, id string) (dto.SanityCheckResponse, error)
	History(ctx context.Context, user session.User, id string) ([]dto.ActivityResponse, error)
	Delete(ctx context.Context, user session.User, id string) error
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	drafts    draft.Store
	activity  ActivityService
	notifier  Notifier
	artifacts ArtifactRemover
	portfolio PortfolioInvalidator
	sanity    *workflow.SanityChecker
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAssignmentService builds the assignment workflow service. The notifier,
// artifact remover and portfolio invalidator are optional.
func NewAssignmentService(repo repository.AssignmentRepository, drafts draft.Store, activity ActivityService, notifier Notifier, artifacts ArtifactRemover, portfolio PortfolioInvalidator, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		drafts:    drafts,
		activity:  activity,
		notifier:  notifier,
		artifacts: artifacts,
		portfolio: portfolio,
		sanity:    workflow.NewSanityChecker(),
		validator: validate,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/portfolio-api/internal/service/assignment"),
		now:       time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, user session.User, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if user.Role != session.RoleStudent {
		return dto.AssignmentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	model := models.Assignment{
		StudentID: user.ID,
		TeacherID: payload.TeacherID,
	}
	record := workflow.Record{
		Status:          workflow.StatusDraft,
		Values:          payload.Values,
		Feedback:        []workflow.FeedbackItem{},
		RevisionHistory: []workflow.RevisionSnapshot{},
	}
	applyRecord(&model, record)

	if err := s.repo.Create(ctx, &model); err != nil {
		s.preserve(ctx, user, draft.NewDraftID, payload.Values)
		return dto.AssignmentResponse{}, err
	}

	s.drafts.Clear(ctx, draft.Key{UserID: user.ID, DraftID: draft.NewDraftID})
	s.logger.Info().Str("assignment_id", model.ID).Uint("student_id", user.ID).Msg("assignment created")

	return dto.NewAssignmentResponse(model, recordFromModel(model)), nil
}

func (s *assignmentService) Get(ctx context.Context, user session.User, id string) (dto.AssignmentResponse, error) {
	model, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if !canView(user, model) {
		return dto.AssignmentResponse{}, ErrForbidden
	}

	return dto.NewAssignmentResponse(model, recordFromModel(model)), nil
}

func (s *assignmentService) List(ctx context.Context, user session.User, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error) {
	if !user.Authenticated() {
		return dto.AssignmentListResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(query); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	statuses, err := parseStatusFilter(query.Status)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	filter := repository.AssignmentFilter{
		Statuses: statuses,
		Subject:  query.Subject,
		Search:   query.Search,
		Sort:     query.Sort,
		Page:     page,
		PageSize: pageSize,
	}
	if !user.IsReviewer() {
		studentID := user.ID
		filter.StudentID = &studentID
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	responses := make([]dto.AssignmentResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewAssignmentResponse(item, recordFromModel(item)))
	}

	return dto.AssignmentListResponse{Items: responses, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *assignmentService) Update(ctx context.Context, user session.User, id string, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	model, err := s.loadOwned(ctx, user, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	record := recordFromModel(model)
	if !workflow.CanEdit(record.Status) {
		return dto.AssignmentResponse{}, ErrAssignmentLocked
	}

	record.Values = payload.Values
	if record.Status == workflow.StatusNotStarted {
		record.Status = workflow.StatusDraft
	}
	applyRecord(&model, record)

	if err := s.repo.Update(ctx, &model); err != nil {
		s.preserve(ctx, user, model.ID, payload.Values)
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(model, recordFromModel(model)), nil
}

// preserve keeps unsaved values as a draft so a failed write loses nothing.
func (s *assignmentService) preserve(ctx context.Context, user session.User, draftID string, values workflow.Values) {
	step := workflow.StepBasicInfo
	for _, candidate := range workflow.ContentSteps() {
		step = candidate
		if !workflow.IsStepNavigationComplete(candidate, values) {
			break
		}
	}
	s.drafts.Save(ctx, draft.Key{UserID: user.ID, DraftID: draftID}, draft.Draft{Values: values, Step: step})
}

func (s *assignmentService) Navigate(ctx context.Context, user session.User, id string, payload dto.StepNavigationRequest) (dto.StepNavigationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StepNavigationResponse{}, err
	}
	step, err := workflow.ParseStep(payload.From)
	if err != nil {
		return dto.StepNavigationResponse{}, err
	}

	model, err := s.load(ctx, id)
	if err != nil {
		return dto.StepNavigationResponse{}, err
	}
	if !canView(user, model) {
		return dto.StepNavigationResponse{}, ErrForbidden
	}

	record := recordFromModel(model)
	next, err := workflow.Next(record.Status, record.Values, step)
	if err != nil {
		return dto.StepNavigationResponse{}, err
	}

	return dto.StepNavigationResponse{
		Next:  next,
		Steps: workflow.Navigation(record.Status, record.Values),
	}, nil
}

func (s *assignmentService) Submit(ctx context.Context, user session.User, id string) (dto.AssignmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assignments.submit", trace.WithAttributes(attribute.String("assignment.id", id)))
	defer span.End()

	model, err := s.loadOwned(ctx, user, id)
	if err != nil {
		span.RecordError(err)
		return dto.AssignmentResponse{}, err
	}

	record := recordFromModel(model)
	from := record.Status
	if err := workflow.Submit(&record, s.now().UTC()); err != nil {
		span.RecordError(err)
		return dto.AssignmentResponse{}, err
	}
	applyRecord(&model, record)

	if err := s.repo.Update(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.AssignmentResponse{}, err
	}

	s.drafts.Clear(ctx, draft.Key{UserID: user.ID, DraftID: model.ID})
	recordTransition(ctx, s.activity, s.logger, user, model.ID, "submit", from, record.Status, nil)

	if s.notifier != nil && model.TeacherID != nil {
		s.notifier.Notify(ctx, NotificationEvent{
			Type:         NotificationAssignmentSubmitted,
			AssignmentID: model.ID,
			RecipientID:  *model.TeacherID,
			Title:        model.Title,
			Status:       model.Status,
		})
	}

	return dto.NewAssignmentResponse(model, record), nil
}

func (s *assignmentService) SanityCheck(ctx context.Context, user session.User, id string) (dto.SanityCheckResponse, error) {
	model, err := s.load(ctx, id)
	if err != nil {
		return dto.SanityCheckResponse{}, err
	}
	if !canView(user, model) {
		return dto.SanityCheckResponse{}, ErrForbidden
	}

	return dto.SanityCheckResponse{
		AssignmentID: model.ID,
		Issues:       s.sanity.Check(valuesFromModel(model)),
	}, nil
}

func (s *assignmentService) History(ctx context.Context, user session.User, id string) ([]dto.ActivityResponse, error) {
	model, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(user, model) {
		return nil, ErrForbidden
	}

	return s.activity.ListForEntity(ctx, entityAssignment, model.ID)
}

// referencedFiles lists artifact URLs still attached to the student's
// assignments; uploads are deduplicated so one URL can back several of them.
func (s *assignmentService) referencedFiles(ctx context.Context, studentID uint) (map[string]struct{}, error) {
	rows, _, err := s.repo.List(ctx, repository.AssignmentFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}
	refs := make(map[string]struct{})
	for _, row := range rows {
		for _, file := range recordFromModel(row).Values.Files {
			refs[file.URL] = struct{}{}
		}
	}
	return refs, nil
}

func (s *assignmentService) Delete(ctx context.Context, user session.User, id string) error {
	model, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	record := recordFromModel(model)
	switch {
	case user.Role == session.RoleAdmin:
	case user.Role == session.RoleStudent && model.StudentID == user.ID:
		if !workflow.CanEdit(record.Status) {
			return ErrAssignmentLocked
		}
	default:
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, model.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	shared, err := s.referencedFiles(ctx, model.StudentID)
	if err != nil {
		s.logger.Warn().Err(err).Str("assignment_id", model.ID).Msg("skipping artifact cleanup")
	}
	if s.artifacts != nil && err == nil {
		for _, file := range record.Values.Files {
			if _, ok := shared[file.URL]; ok {
				continue
			}
			if err := s.artifacts.Remove(ctx, file.URL); err != nil {
				s.logger.Warn().Err(err).Str("assignment_id", model.ID).Str("url", file.URL).Msg("failed to remove artifact")
			}
		}
	}
	s.drafts.Clear(ctx, draft.Key{UserID: model.StudentID, DraftID: model.ID})
	if record.Status.IsShowcased() && s.portfolio != nil {
		s.portfolio.Invalidate(ctx, model.StudentID)
	}

	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    user.ID,
		ActorRole:  string(user.Role),
		Action:     "assignment.deleted",
		EntityType: entityAssignment,
		EntityID:   model.ID,
		Metadata:   map[string]interface{}{"status": model.Status},
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record assignment deletion")
	}

	return nil
}

func (s *assignmentService) load(ctx context.Context, id string) (models.Assignment, error) {
	return loadAssignment(ctx, s.repo, id)
}

func (s *assignmentService) loadOwned(ctx context.Context, user session.User, id string) (models.Assignment, error) {
	model, err := s.load(ctx, id)
	if err != nil {
		return models.Assignment{}, err
	}
	if user.Role != session.RoleStudent || model.StudentID != user.ID {
		return models.Assignment{}, ErrForbidden
	}
	return model, nil
}

func loadAssignment(ctx context.Context, repo repository.AssignmentRepository, id string) (models.Assignment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Assignment{}, ErrAssignmentNotFound
	}

	model, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return model, nil
}

func canView(user session.User, model models.Assignment) bool {
	if user.IsReviewer() {
		return true
	}
	return user.Role == session.RoleStudent && model.StudentID == user.ID
}

func parseStatusFilter(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var statuses []string
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		status, err := workflow.ParseStatus(part)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status.Spellings()...)
	}
	return statuses, nil
}

// recordTransition audits and counts a status change. Audit failures are logged only.
func recordTransition(ctx context.Context, activity ActivityRecorder, logger zerolog.Logger, user session.User, assignmentID, action string, from, to workflow.Status, metadata map[string]interface{}) {
	observability.WorkflowTransitions().WithLabelValues(action, string(from), string(to)).Inc()

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["from"] = string(from)
	metadata["to"] = string(to)

	if _, err := activity.Record(ctx, ActivityEntry{
		ActorID:    user.ID,
		ActorRole:  string(user.Role),
		Action:     fmt.Sprintf("assignment.%s", action),
		EntityType: entityAssignment,
		EntityID:   assignmentID,
		Metadata:   metadata,
	}); err != nil {
		logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("failed to record transition")
	}

	logger.Info().
		Str("assignment_id", assignmentID).
		Str("from", string(from)).
		Str("to", string(to)).
		Uint("actor_id", user.ID).
		Msg("assignment status changed")
}
