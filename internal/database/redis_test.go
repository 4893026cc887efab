package database

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/models"
)

func TestConnectRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)

	client, err := ConnectRedis(context.Background(), "redis://"+mini.Addr())
	require.NoError(t, err)
	defer client.Close()

	mini.Close()
	_, err = ConnectRedis(context.Background(), "redis://"+mini.Addr())
	require.Error(t, err)
}

func TestConnectRejectsEmptyURLs(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "")
	require.Error(t, err)

	_, err = ConnectPostgres("", 10, zerolog.Nop())
	require.ErrorIs(t, err, ErrEmptyDSN)

	_, err = ConnectNATS("", "test")
	require.Error(t, err)
}

func TestMigrateAndPing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:database_migrate?mode=memory&cache=shared"), &gorm.Config{Logger: NewGormLogger(zerolog.Nop())})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.True(t, db.Migrator().HasTable(&models.Assignment{}))
	require.True(t, db.Migrator().HasTable(&models.Notification{}))
	require.NoError(t, Ping(context.Background(), db))
}
