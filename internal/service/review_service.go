package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

// PortfolioInvalidator drops cached public portfolio pages.
type PortfolioInvalidator interface {
	Invalidate(ctx context.Context, studentID uint)
}

// ReviewService exposes the teacher side of the workflow.
type ReviewService interface {
	Queue(ctx context.Context, user session.User, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error)
	Review(ctx context.Context, user session.User, id string, payload dto.ReviewDecisionRequest) (dto.ReviewDecisionResponse, error)
	Publish(ctx context.Context, user session.User, id string) (dto.AssignmentResponse, error)
}

type reviewService struct {
	repo      repository.AssignmentRepository
	activity  ActivityRecorder
	notifier  Notifier
	portfolio PortfolioInvalidator
	sanity    *workflow.SanityChecker
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewReviewService builds the review service. The notifier and portfolio
// invalidator are optional.
func NewReviewService(repo repository.AssignmentRepository, activity ActivityRecorder, notifier Notifier, portfolio PortfolioInvalidator, validate *validator.Validate, logger zerolog.Logger) ReviewService {
	return &reviewService{
		repo:      repo,
		activity:  activity,
		notifier:  notifier,
		portfolio: portfolio,
		sanity:    workflow.NewSanityChecker(),
		validator: validate,
		logger:    logger.With().Str("component", "review_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/portfolio-api/internal/service/review"),
		now:       time.Now,
	}
}

var defaultQueueStatuses = []workflow.Status{workflow.StatusSubmitted, workflow.StatusUnderReview}

func (s *reviewService) Queue(ctx context.Context, user session.User, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error) {
	if !user.IsReviewer() {
		return dto.AssignmentListResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(query); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	statuses, err := parseStatusFilter(query.Status)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}
	if len(statuses) == 0 {
		for _, status := range defaultQueueStatuses {
			statuses = append(statuses, status.Spellings()...)
		}
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	sort := query.Sort
	if sort == "" {
		sort = "submitted_at"
	}

	filter := repository.AssignmentFilter{
		Statuses: statuses,
		Subject:  query.Subject,
		Search:   query.Search,
		Sort:     sort,
		Page:     page,
		PageSize: pageSize,
	}
	if query.TeacherID > 0 {
		teacherID := query.TeacherID
		filter.TeacherID = &teacherID
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

func (s *reviewService) Review(ctx context.Context, user session.User, id string, payload dto.ReviewDecisionRequest) (dto.ReviewDecisionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assignments.review", trace.WithAttributes(
		attribute.String("assignment.id", id),
		attribute.String("review.status", payload.Status),
	))
	defer span.End()

	if !user.IsReviewer() {
		return dto.ReviewDecisionResponse{}, ErrForbidden
	}
	payload.Status = strings.ToUpper(strings.TrimSpace(payload.Status))
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReviewDecisionResponse{}, err
	}
	target, err := workflow.ParseStatus(payload.Status)
	if err != nil {
		return dto.ReviewDecisionResponse{}, err
	}

	model, err := loadAssignment(ctx, s.repo, id)
	if err != nil {
		span.RecordError(err)
		return dto.ReviewDecisionResponse{}, err
	}

	now := s.now().UTC()
	record := recordFromModel(model)
	from := record.Status
	decision := workflow.Decision{Status: target, Feedback: feedbackFromInput(payload.Feedback, user.ID, now)}
	if err := workflow.Review(&record, decision, now); err != nil {
		span.RecordError(err)
		return dto.ReviewDecisionResponse{}, err
	}

	applyRecord(&model, record)
	if model.TeacherID == nil {
		teacherID := user.ID
		model.TeacherID = &teacherID
	}

	if err := s.repo.Update(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.ReviewDecisionResponse{}, err
	}

	recordTransition(ctx, s.activity, s.logger, user, model.ID, "review", from, record.Status, map[string]interface{}{
		"revision": record.CurrentRevision,
	})
	s.invalidate(ctx, model.StudentID)

	if s.notifier != nil {
		s.notifier.Notify(ctx, NotificationEvent{
			Type:         NotificationAssignmentReviewed,
			AssignmentID: model.ID,
			RecipientID:  model.StudentID,
			Title:        model.Title,
			Status:       string(record.Status),
		})
	}

	return dto.ReviewDecisionResponse{
		Assignment: dto.NewAssignmentResponse(model, record),
		Warnings:   s.sanity.Check(record.Values),
	}, nil
}

func (s *reviewService) Publish(ctx context.Context, user session.User, id string) (dto.AssignmentResponse, error) {
	model, err := loadAssignment(ctx, s.repo, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	owner := user.Role == session.RoleStudent && model.StudentID == user.ID
	if !owner && !user.IsReviewer() {
		return dto.AssignmentResponse{}, ErrForbidden
	}

	record := recordFromModel(model)
	from := record.Status
	if err := workflow.Publish(&record); err != nil {
		return dto.AssignmentResponse{}, err
	}
	applyRecord(&model, record)

	if err := s.repo.Update(ctx, &model); err != nil {
		return dto.AssignmentResponse{}, err
	}

	recordTransition(ctx, s.activity, s.logger, user, model.ID, "publish", from, record.Status, nil)
	s.invalidate(ctx, model.StudentID)

	if s.notifier != nil && !owner {
		s.notifier.Notify(ctx, NotificationEvent{
			Type:         NotificationAssignmentPublished,
			AssignmentID: model.ID,
			RecipientID:  model.StudentID,
			Title:        model.Title,
			Status:       string(record.Status),
		})
	}

	return dto.NewAssignmentResponse(model, record), nil
}

func (s *reviewService) invalidate(ctx context.Context, studentID uint) {
	if s.portfolio != nil {
		s.portfolio.Invalidate(ctx, studentID)
	}
}

func feedbackFromInput(input *dto.FeedbackInput, teacherID uint, now time.Time) *workflow.FeedbackItem {
	if input == nil {
		return nil
	}

	comments := make(map[string]workflow.QuestionComment, len(input.QuestionComments))
	for questionID, comment := range input.QuestionComments {
		comment = strings.TrimSpace(comment)
		if comment == "" {
			continue
		}
		comments[questionID] = workflow.QuestionComment{
			ID:         fmt.Sprintf("%s-%d", questionID, now.UnixMilli()),
			Comment:    comment,
			Timestamp:  now,
			TeacherID:  teacherID,
			QuestionID: questionID,
		}
	}

	return &workflow.FeedbackItem{
		Text:                strings.TrimSpace(input.Text),
		Date:                now,
		TeacherID:           teacherID,
		SelectedSkills:      input.SelectedSkills,
		SkillsJustification: strings.TrimSpace(input.SkillsJustification),
		QuestionComments:    comments,
	}
}
