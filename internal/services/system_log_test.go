package services

import (
	"context"
	"testing"
	"time"

	"github.com/equipdesk/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemLogService_WriteAndList(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSystemLogService(db)
	ctx := context.Background()
	uid := uint(3)

	svc.Info(ctx, LogEntry{Module: "auth", Action: "register", Message: "user registered", UserID: &uid})
	svc.Warning(ctx, LogEntry{Module: "auth", Action: "login_failed", Message: "wrong password", Extra: map[string]int{"attempt": 2}})
	svc.Error(ctx, LogEntry{Module: "lists", Action: "POST /lists/create", Message: "boom"})

	all, err := svc.List(ctx, &SystemLogListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.PageSize)

	warn, err := svc.List(ctx, &SystemLogListRequest{Level: models.LogLevelWarning})
	require.NoError(t, err)
	require.Len(t, warn.Items, 1)
	assert.JSONEq(t, `{"attempt":2}`, warn.Items[0].Extra)

	authOnly, err := svc.List(ctx, &SystemLogListRequest{Module: "auth", PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), authOnly.Total)
	assert.Len(t, authOnly.Items, 1)

	today := time.Now().UTC().Format("2006-01-02")
	dated, err := svc.List(ctx, &SystemLogListRequest{StartDate: today, EndDate: today})
	require.NoError(t, err)
	assert.Equal(t, int64(3), dated.Total)

	_, err = svc.List(ctx, &SystemLogListRequest{StartDate: "yesterday"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	modules, err := svc.GetModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"auth", "lists"}, modules)
}

func TestSystemLogService_CleanupOldLogs(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSystemLogService(db)
	ctx := context.Background()

	old := models.SystemLog{Level: "info", Module: "m", CreatedAt: time.Now().UTC().AddDate(0, 0, -40)}
	recent := models.SystemLog{Level: "info", Module: "m", CreatedAt: time.Now().UTC().AddDate(0, 0, -1)}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	n, err := svc.CleanupOldLogs(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n, "non-positive retention disables cleanup")

	n, err = svc.CleanupOldLogs(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var left int64
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&left).Error)
	assert.Equal(t, int64(1), left)
}

func TestSystemLogService_RunCleanupOncePerDay(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSystemLogService(db)
	ctx := context.Background()

	ok, err := svc.claimRun(ctx, logCleanupJob, "2000-01-01", "node-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.claimRun(ctx, logCleanupJob, "2000-01-01", "node-b")
	require.NoError(t, err)
	assert.False(t, ok, "second replica must not claim the same run")

	ok, err = svc.claimRun(ctx, logCleanupJob, "2000-01-02", "node-b")
	require.NoError(t, err)
	assert.True(t, ok)

	stale := models.SystemLog{Level: "info", Module: "m", CreatedAt: time.Now().UTC().AddDate(0, 0, -90)}
	require.NoError(t, db.Create(&stale).Error)

	svc.RunCleanup(ctx, 30)
	svc.RunCleanup(ctx, 30)

	var locks, logs int64
	require.NoError(t, db.Model(&models.JobLock{}).Where("run_key = ?", time.Now().UTC().Format("2006-01-02")).Count(&locks).Error)
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&logs).Error)
	assert.Equal(t, int64(1), locks)
	assert.Zero(t, logs)
}

func TestStartLogCleanupScheduler_InvalidSchedule(t *testing.T) {
	svc := NewSystemLogService(setupTestDB(t))

	_, err := StartLogCleanupScheduler(svc, "not a cron schedule", 30)
	assert.Error(t, err)

	c, err := StartLogCleanupScheduler(svc, "0 3 * * *", 30)
	require.NoError(t, err)
	<-c.Stop().Done()
}
