package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/equipdesk/backend/internal/models"
	"github.com/equipdesk/backend/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a private in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), models.GormConfig(logger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func testIssuer() *utils.TokenIssuer {
	return utils.NewTokenIssuer("access-secret-for-tests", "refresh-secret-for-tests", 15*time.Minute, 7*24*time.Hour)
}

type authFixture struct {
	db       *gorm.DB
	issuer   *utils.TokenIssuer
	syslog   *SystemLogService
	sessions *SessionStore
	auth     *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := setupTestDB(t)
	issuer := testIssuer()
	syslog := NewSystemLogService(db)
	sessions := NewSessionStore(db, issuer, syslog)
	return &authFixture{
		db:       db,
		issuer:   issuer,
		syslog:   syslog,
		sessions: sessions,
		auth:     NewAuthService(db, issuer, sessions, syslog),
	}
}

func (f *authFixture) createUser(t *testing.T, email, password, role string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *authFixture) sessionRows(t *testing.T, userID uint) []models.RefreshSession {
	t.Helper()
	var rows []models.RefreshSession
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (f *authFixture) activeCount(t *testing.T, userID uint) int {
	t.Helper()
	active, err := f.sessions.ListActiveSessions(context.Background(), userID)
	require.NoError(t, err)
	return len(active)
}
