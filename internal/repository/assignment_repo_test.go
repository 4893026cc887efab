package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/models"
)

func TestAssignmentRepositoryCreateAssignsOpaqueID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)

	assignment := models.Assignment{StudentID: 1, Title: "Clay pot", Status: "DRAFT"}
	require.NoError(t, repo.Create(context.Background(), &assignment))
	require.Len(t, assignment.ID, 36)

	loaded, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Equal(t, "Clay pot", loaded.Title)

	_, err = repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAssignmentRepositoryListFiltersAndSorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	now := time.Now()
	rows := []models.Assignment{
		{StudentID: 1, Title: "Bridge model", Subject: "Science", Status: "APPROVED", UpdatedAt: now.Add(-2 * time.Hour)},
		{StudentID: 1, Title: "Haiku", Subject: "English", Status: "DRAFT", UpdatedAt: now.Add(-1 * time.Hour)},
		{StudentID: 2, Title: "Circuit", Subject: "science", Status: "PUBLISHED", UpdatedAt: now},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	student := uint(1)
	items, total, err := repo.List(ctx, AssignmentFilter{StudentID: &student})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)

	items, total, err = repo.List(ctx, AssignmentFilter{Statuses: []string{"APPROVED", "PUBLISHED"}, Sort: "title"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "Bridge model", items[0].Title)

	items, _, err = repo.List(ctx, AssignmentFilter{Subject: "SCIENCE", PageSize: 1, Page: 2, Sort: "title"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Circuit", items[0].Title)

	items, _, err = repo.List(ctx, AssignmentFilter{Search: "haik"})
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestAssignmentRepositoryDeleteMissing(t *testing.T) {
	repo := NewAssignmentRepository(setupTestDB(t))
	require.ErrorIs(t, repo.Delete(context.Background(), "nope"), gorm.ErrRecordNotFound)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}
