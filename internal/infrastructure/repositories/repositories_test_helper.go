package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"hostelhub.backend/internal/domain/entities"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db), "migrate")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func seedUser(t *testing.T, repo *UserRepository, email string, mutate ...func(*entities.User)) *entities.User {
	t.Helper()
	u := entities.NewUser(uuid.New(), email, "Test User", "hash", nowUTC())
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
