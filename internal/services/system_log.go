package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/equipdesk/backend/internal/models"
	"github.com/equipdesk/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// LogEntry is one system log record before persistence. Extra is marshalled to JSON.
type LogEntry struct {
	Module    string
	Action    string
	Message   string
	UserID    *uint
	IP        string
	UserAgent string
	RequestID string
	Extra     interface{}
}

type SystemLogService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SystemLogService) Info(ctx context.Context, e LogEntry)    { s.write(ctx, models.LogLevelInfo, e) }
func (s *SystemLogService) Warning(ctx context.Context, e LogEntry) { s.write(ctx, models.LogLevelWarning, e) }
func (s *SystemLogService) Error(ctx context.Context, e LogEntry)   { s.write(ctx, models.LogLevelError, e) }

// write never fails the caller; a record that cannot be stored is reported to the process log.
func (s *SystemLogService) write(ctx context.Context, level string, e LogEntry) {
	var extra string
	if e.Extra != nil {
		if b, err := json.Marshal(e.Extra); err == nil {
			extra = string(b)
		}
	}

	rec := &models.SystemLog{
		Level:     level,
		Module:    e.Module,
		Action:    e.Action,
		Message:   e.Message,
		UserID:    e.UserID,
		IP:        e.IP,
		UserAgent: truncate(e.UserAgent, 255),
		RequestID: e.RequestID,
		Extra:     extra,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		logger.Error().Err(err).Str("module", e.Module).Str("action", e.Action).Msg("failed to write system log")
	}
}

type SystemLogListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"` // YYYY-MM-DD
	EndDate   string `form:"end_date"`   // YYYY-MM-DD, inclusive
	Search    string `form:"search"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(ctx context.Context, req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	query := s.db.WithContext(ctx).Model(&models.SystemLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidInput)
		}
		query = query.Where("created_at >= ?", start)
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidInput)
		}
		query = query.Where("created_at < ?", end.AddDate(0, 0, 1))
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	logs := []models.SystemLog{}
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

func (s *SystemLogService) GetModules(ctx context.Context) ([]string, error) {
	modules := []string{}
	if err := s.db.WithContext(ctx).Model(&models.SystemLog{}).Distinct("module").Order("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes logs older than retentionDays and returns the number removed.
// A non-positive retention disables cleanup.
func (s *SystemLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

const logCleanupJob = "system_log_cleanup"

// claimRun records that owner runs job for runKey. It returns false when another
// replica has already claimed the same run.
func (s *SystemLogService) claimRun(ctx context.Context, job, runKey, owner string) (bool, error) {
	lock := models.JobLock{Job: job, RunKey: runKey, Owner: owner, AcquiredAt: s.now()}
	err := s.db.WithContext(ctx).Create(&lock).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RunCleanup performs one retention pass, at most once per day across replicas.
func (s *SystemLogService) RunCleanup(ctx context.Context, retentionDays int) {
	if retentionDays <= 0 {
		logger.Debug().Msg("system log cleanup disabled")
		return
	}

	owner, _ := os.Hostname()
	ok, err := s.claimRun(ctx, logCleanupJob, s.now().Format("2006-01-02"), owner)
	if err != nil {
		logger.Error().Err(err).Msg("failed to claim system log cleanup run")
		return
	}
	if !ok {
		logger.Debug().Msg("system log cleanup already ran today")
		return
	}

	deleted, err := s.CleanupOldLogs(ctx, retentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("system log cleanup failed")
		return
	}
	logger.Info().Int64("deleted", deleted).Int("retention_days", retentionDays).Msg("system log cleanup finished")
}

// StartLogCleanupScheduler schedules RunCleanup on a standard 5-field cron schedule.
// The caller stops the returned scheduler on shutdown.
func StartLogCleanupScheduler(s *SystemLogService, schedule string, retentionDays int) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, func() {
		s.RunCleanup(context.Background(), retentionDays)
	}); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
