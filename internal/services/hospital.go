package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/equipdesk/backend/internal/models"
	"gorm.io/gorm"
)

type HospitalService struct {
	db *gorm.DB
}

func NewHospitalService(db *gorm.DB) *HospitalService {
	return &HospitalService{db: db}
}

type CreateHospitalRequest struct {
	Name string `json:"name"`
	CNPJ string `json:"cnpj"`
}

func (s *HospitalService) List(ctx context.Context) ([]models.Hospital, error) {
	hospitals := []models.Hospital{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&hospitals).Error; err != nil {
		return nil, err
	}
	return hospitals, nil
}

func (s *HospitalService) GetByID(ctx context.Context, id uint) (*models.Hospital, error) {
	var hospital models.Hospital
	if err := s.db.WithContext(ctx).First(&hospital, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: hospital not found", ErrNotFound)
		}
		return nil, err
	}
	return &hospital, nil
}

func (s *HospitalService) Create(ctx context.Context, req *CreateHospitalRequest) (*models.Hospital, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: hospital name is required", ErrInvalidInput)
	}

	hospital := models.Hospital{Name: name, CNPJ: optional(req.CNPJ)}
	if err := s.db.WithContext(ctx).Create(&hospital).Error; err != nil {
		return nil, err
	}
	return &hospital, nil
}

// hospitalExists reports whether the hospital row is present. db may be a transaction.
func hospitalExists(db *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := db.Model(&models.Hospital{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// optional returns nil for blank strings so they are stored as NULL.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
