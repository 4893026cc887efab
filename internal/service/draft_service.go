package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/portfolio-api/internal/draft"
	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

// ErrDraftNotFound indicates there is no usable draft for the key.
var ErrDraftNotFound = errors.New("draft not found")

// DraftService stores wizard progress between explicit saves.
type DraftService interface {
	Save(ctx context.Context, user session.User, draftID string, payload dto.DraftSaveRequest) (dto.DraftResponse, error)
	Load(ctx context.Context, user session.User, draftID string) (dto.DraftResponse, error)
	Clear(ctx context.Context, user session.User, draftID string) error
}

type draftService struct {
	store       draft.Store
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	now         func() time.Time
}

// NewDraftService constructs the draft service.
func NewDraftService(store draft.Store, assignments repository.AssignmentRepository, validate *validator.Validate) DraftService {
	return &draftService{
		store:       store,
		assignments: assignments,
		validator:   validate,
		now:         time.Now,
	}
}

func (s *draftService) Save(ctx context.Context, user session.User, draftID string, payload dto.DraftSaveRequest) (dto.DraftResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.DraftResponse{}, err
	}
	step, err := workflow.ParseStep(payload.Step)
	if err != nil {
		return dto.DraftResponse{}, err
	}
	key, err := s.key(ctx, user, draftID)
	if err != nil {
		return dto.DraftResponse{}, err
	}

	saved := draft.Draft{
		Values:  workflow.Migrate(payload.Values),
		Step:    step,
		SavedAt: s.now().UTC(),
	}
	s.store.Save(ctx, key, saved)

	return draftResponse(key, saved), nil
}

func (s *draftService) Load(ctx context.Context, user session.User, draftID string) (dto.DraftResponse, error) {
	key, err := s.key(ctx, user, draftID)
	if err != nil {
		return dto.DraftResponse{}, err
	}

	loaded, ok := s.store.Load(ctx, key)
	if !ok {
		return dto.DraftResponse{}, ErrDraftNotFound
	}
	return draftResponse(key, loaded), nil
}

func (s *draftService) Clear(ctx context.Context, user session.User, draftID string) error {
	key, err := s.key(ctx, user, draftID)
	if err != nil {
		return err
	}
	s.store.Clear(ctx, key)
	return nil
}

// key scopes the draft to the caller. Drafts of saved assignments are only
// available to the owning student while the assignment is editable.
func (s *draftService) key(ctx context.Context, user session.User, draftID string) (draft.Key, error) {
	if user.Role != session.RoleStudent {
		return draft.Key{}, ErrForbidden
	}

	draftID = strings.TrimSpace(draftID)
	if draftID == "" || draftID == draft.NewDraftID {
		return draft.Key{UserID: user.ID, DraftID: draft.NewDraftID}, nil
	}

	model, err := loadAssignment(ctx, s.assignments, draftID)
	if err != nil {
		return draft.Key{}, err
	}
	if model.StudentID != user.ID {
		return draft.Key{}, ErrForbidden
	}
	if !workflow.CanEdit(recordFromModel(model).Status) {
		return draft.Key{}, ErrAssignmentLocked
	}
	return draft.Key{UserID: user.ID, DraftID: model.ID}, nil
}

func draftResponse(key draft.Key, d draft.Draft) dto.DraftResponse {
	return dto.DraftResponse{
		DraftID: key.DraftID,
		Step:    d.Step,
		Values:  d.Values,
		SavedAt: d.SavedAt,
	}
}
