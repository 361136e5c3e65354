package services

import (
	"context"
	"time"

	"github.com/equipdesk/backend/internal/models"
	"gorm.io/gorm"
)

const dashboardRecentLists = 5

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardTotals struct {
	Hospitals    int64 `json:"hospitals"`
	Equipments   int64 `json:"equipments"`
	Lists        int64 `json:"lists"`
	PendingLists int64 `json:"pending_lists"`
}

type RecentList struct {
	ID           uint      `json:"id"`
	HospitalName string    `json:"hospital_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type DashboardResponse struct {
	Totals    DashboardTotals `json:"totals"`
	LastLists []RecentList    `json:"last_lists"`
}

func (s *DashboardService) GetStats(ctx context.Context) (*DashboardResponse, error) {
	db := s.db.WithContext(ctx)

	var totals DashboardTotals
	if err := db.Model(&models.Hospital{}).Count(&totals.Hospitals).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Equipment{}).Count(&totals.Equipments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.List{}).Count(&totals.Lists).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.List{}).Where("status = ?", models.StatusInProgress).Count(&totals.PendingLists).Error; err != nil {
		return nil, err
	}

	recent := []RecentList{}
	err := db.Table("lists AS l").
		Select("l.id, h.name AS hospital_name, l.created_at").
		Joins("JOIN hospitals h ON h.id = l.hospital_id").
		Order("l.created_at DESC, l.id DESC").
		Limit(dashboardRecentLists).
		Scan(&recent).Error
	if err != nil {
		return nil, err
	}

	return &DashboardResponse{Totals: totals, LastLists: recent}, nil
}
