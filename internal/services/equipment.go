package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/equipdesk/backend/internal/models"
	"gorm.io/gorm"
)

type EquipmentService struct {
	db *gorm.DB
}

func NewEquipmentService(db *gorm.DB) *EquipmentService {
	return &EquipmentService{db: db}
}

type CreateEquipmentRequest struct {
	HospitalID            uint   `json:"hospital_id"`
	Description           string `json:"description"`
	Manufacturer          string `json:"manufacturer"`
	Model                 string `json:"model"`
	SerialNumber          string `json:"serial_number"`
	AssetTag              string `json:"asset_tag"`
	Calibration           bool   `json:"calibration"`
	ElectricalSafety      bool   `json:"electrical_safety"`
	PreventiveMaintenance bool   `json:"preventive_maintenance"`
	Notes                 string `json:"notes"`
}

func (s *EquipmentService) Create(ctx context.Context, req *CreateEquipmentRequest) (*models.Equipment, error) {
	if req.HospitalID == 0 {
		return nil, fmt.Errorf("%w: hospital_id is required", ErrInvalidInput)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}

	db := s.db.WithContext(ctx)

	ok, err := hospitalExists(db, req.HospitalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: hospital not found", ErrNotFound)
	}

	equipment := models.Equipment{
		HospitalID:            req.HospitalID,
		Description:           description,
		Manufacturer:          optional(req.Manufacturer),
		Model:                 optional(req.Model),
		SerialNumber:          optional(req.SerialNumber),
		AssetTag:              optional(req.AssetTag),
		Calibration:           req.Calibration,
		ElectricalSafety:      req.ElectricalSafety,
		PreventiveMaintenance: req.PreventiveMaintenance,
		Notes:                 optional(req.Notes),
		Status:                models.StatusPending,
	}
	if err := db.Create(&equipment).Error; err != nil {
		return nil, err
	}
	return &equipment, nil
}

// ListByHospital returns the hospital's equipments ordered by description.
func (s *EquipmentService) ListByHospital(ctx context.Context, hospitalID uint) ([]models.Equipment, error) {
	db := s.db.WithContext(ctx)

	ok, err := hospitalExists(db, hospitalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: hospital not found", ErrNotFound)
	}

	equipments := []models.Equipment{}
	if err := db.Where("hospital_id = ?", hospitalID).Order("description ASC").Find(&equipments).Error; err != nil {
		return nil, err
	}
	return equipments, nil
}
