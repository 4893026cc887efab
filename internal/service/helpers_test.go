package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

var (
	student      = session.User{ID: 11, Role: session.RoleStudent}
	otherStudent = session.User{ID: 12, Role: session.RoleStudent}
	teacher      = session.User{ID: 21, Role: session.RoleTeacher}
	admin        = session.User{ID: 1, Role: session.RoleAdmin}
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func fixedClock() time.Time {
	return time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func boolRef(v bool) *bool {
	return &v
}

func readyValues() workflow.Values {
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
		Files:               []workflow.FileRef{{URL: "https://cdn.example.com/volcano.jpg", Name: "volcano.jpg"}},
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []NotificationEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]NotificationEvent(nil), n.events...)
}

type recordingRemover struct {
	removed []string
}

func (r *recordingRemover) Remove(_ context.Context, url string) error {
	r.removed = append(r.removed, url)
	return nil
}

type recordingInvalidator struct {
	students []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, studentID uint) {
	r.students = append(r.students, studentID)
}
