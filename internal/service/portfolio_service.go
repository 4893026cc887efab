package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/observability"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

// ErrStudentNotFound indicates the portfolio owner does not exist.
var ErrStudentNotFound = errors.New("student not found")

const portfolioPageSize = 100

// PortfolioService renders a student's public showcase.
type PortfolioService interface {
	PortfolioInvalidator
	Get(ctx context.Context, studentID uint) (dto.PortfolioResponse, error)
}

type portfolioService struct {
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	sanity      *workflow.SanityChecker
	logger      zerolog.Logger
	now         func() time.Time
}

// NewPortfolioService builds the public portfolio reader. The cache is optional.
func NewPortfolioService(assignments repository.AssignmentRepository, users repository.UserRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) PortfolioService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &portfolioService{
		assignments: assignments,
		users:       users,
		cache:       cache,
		cacheTTL:    ttl,
		sanity:      workflow.NewSanityChecker(),
		logger:      logger.With().Str("component", "portfolio_service").Logger(),
		now:         time.Now,
	}
}

func portfolioCacheKey(studentID uint) string {
	return fmt.Sprintf("portfolio:student:%d", studentID)
}

func (s *portfolioService) Get(ctx context.Context, studentID uint) (dto.PortfolioResponse, error) {
	cacheKey := portfolioCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.PortfolioResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.PortfolioCache().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read portfolio cache")
		}
		observability.PortfolioCache().WithLabelValues("miss").Inc()
	}

	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PortfolioResponse{}, ErrStudentNotFound
		}
		return dto.PortfolioResponse{}, err
	}

	var statuses []string
	for _, status := range workflow.Statuses() {
		if status.IsShowcased() {
			statuses = append(statuses, status.Spellings()...)
		}
	}

	assignments, _, err := s.assignments.List(ctx, repository.AssignmentFilter{
		StudentID: &studentID,
		Statuses:  statuses,
		Sort:      "-submitted_at",
		Page:      1,
		PageSize:  portfolioPageSize,
	})
	if err != nil {
		return dto.PortfolioResponse{}, err
	}

	response := s.buildResponse(student, assignments)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store portfolio cache")
			}
		}
	}

	return response, nil
}

func (s *portfolioService) Invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, portfolioCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate portfolio cache")
	}
}

func (s *portfolioService) buildResponse(student models.User, assignments []models.Assignment) dto.PortfolioResponse {
	items := make([]dto.PortfolioItem, 0, len(assignments))
	for _, assignment := range assignments {
		record := recordFromModel(assignment)
		if !record.Status.IsShowcased() {
			continue
		}
		values := record.Values

		files := make([]workflow.FileRef, 0, len(values.Files))
		for _, file := range values.Files {
			if !file.IsProcessDocumentation {
				files = append(files, file)
			}
		}

		items = append(items, dto.PortfolioItem{
			ID:            assignment.ID,
			Title:         s.sanity.PlainText(values.Title),
			Subject:       values.Subject,
			Grade:         values.Grade,
			ArtifactType:  values.ArtifactType,
			Month:         values.Month,
			Skills:        values.SelectedSkills,
			PrideReason:   s.sanity.PlainText(values.PrideReason),
			Files:         files,
			ExternalLinks: values.ExternalLinks,
			Status:        record.Status,
			VerifiedAt:    record.VerifiedAt,
		})
	}

	return dto.PortfolioResponse{
		StudentID:   student.ID,
		StudentName: student.Name,
		Items:       items,
		GeneratedAt: s.now().UTC(),
	}
}
