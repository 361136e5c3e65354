package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/equipdesk/backend/internal/models"
	"gorm.io/gorm"
)

type ListService struct {
	db *gorm.DB
}

func NewListService(db *gorm.DB) *ListService {
	return &ListService{db: db}
}

type ListEquipmentRequest struct {
	EquipmentID uint     `json:"equipment_id"`
	Services    []string `json:"services"`
}

type CreateListRequest struct {
	HospitalID  uint                   `json:"hospital_id"`
	ListType    string                 `json:"list_type"`
	Description string                 `json:"description"`
	Equipments  []ListEquipmentRequest `json:"equipments"`
}

type ListSummary struct {
	ID           uint      `json:"id"`
	ListType     string    `json:"list_type"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	HospitalName string    `json:"hospital_name"`
}

// ListItem is one equipment of a list with the services requested for it.
type ListItem struct {
	ID                    uint    `json:"id"`
	EquipmentID           uint    `json:"equipment_id"`
	Description           string  `json:"description"`
	Manufacturer          *string `json:"manufacturer"`
	Model                 *string `json:"model"`
	SerialNumber          *string `json:"serial_number"`
	AssetTag              *string `json:"asset_tag"`
	Calibration           bool    `json:"calibration"`
	ElectricalSafety      bool    `json:"electrical_safety"`
	PreventiveMaintenance bool    `json:"preventive_maintenance"`
	Status                string  `json:"status"`
	Notes                 string  `json:"notes"`
}

type ListDetail struct {
	ID    uint       `json:"id"`
	Items []ListItem `json:"items"`
}

func (r *CreateListRequest) validate() error {
	if r.HospitalID == 0 || strings.TrimSpace(r.ListType) == "" {
		return fmt.Errorf("%w: hospital_id and list_type are required", ErrInvalidInput)
	}
	if len(r.Equipments) == 0 {
		return fmt.Errorf("%w: at least one equipment is required", ErrInvalidInput)
	}
	seen := make(map[uint]bool, len(r.Equipments))
	for _, e := range r.Equipments {
		if e.EquipmentID == 0 {
			return fmt.Errorf("%w: equipment_id is required", ErrInvalidInput)
		}
		if seen[e.EquipmentID] {
			return fmt.Errorf("%w: equipment %d is listed twice", ErrInvalidInput, e.EquipmentID)
		}
		seen[e.EquipmentID] = true
		for _, svc := range e.Services {
			if !models.ValidServiceType(svc) {
				return fmt.Errorf("%w: unknown service type %q", ErrInvalidInput, svc)
			}
		}
	}
	return nil
}

// Create stores a list with its equipments and services in one transaction.
func (s *ListService) Create(ctx context.Context, req *CreateListRequest, createdBy uint) (*models.List, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	list := models.List{
		HospitalID:  req.HospitalID,
		ListType:    strings.TrimSpace(req.ListType),
		Description: optional(req.Description),
		Status:      models.StatusInProgress,
	}
	if createdBy != 0 {
		list.CreatedBy = &createdBy
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := hospitalExists(tx, req.HospitalID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: hospital not found", ErrNotFound)
		}

		ids := make([]uint, 0, len(req.Equipments))
		for _, e := range req.Equipments {
			ids = append(ids, e.EquipmentID)
		}
		var owned int64
		if err := tx.Model(&models.Equipment{}).
			Where("id IN ? AND hospital_id = ?", ids, req.HospitalID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned != int64(len(ids)) {
			return fmt.Errorf("%w: every equipment must belong to the hospital", ErrInvalidInput)
		}

		if err := tx.Create(&list).Error; err != nil {
			return err
		}

		for _, e := range req.Equipments {
			le := models.ListEquipment{ListID: list.ID, EquipmentID: e.EquipmentID}
			if err := tx.Create(&le).Error; err != nil {
				return err
			}
			for _, svc := range e.Services {
				row := models.ListEquipmentService{
					ListEquipmentID: le.ID,
					ServiceType:     svc,
					ServiceStatus:   models.StatusPending,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// List returns every list, newest first, with its hospital name.
func (s *ListService) List(ctx context.Context) ([]ListSummary, error) {
	out := []ListSummary{}
	err := s.db.WithContext(ctx).
		Table("lists AS l").
		Select("l.id, l.list_type, l.status, l.created_at, h.name AS hospital_name").
		Joins("JOIN hospitals h ON h.id = l.hospital_id").
		Order("l.created_at DESC, l.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type listDetailRow struct {
	ListEquipmentID uint
	EquipmentID     uint
	Description     string
	Manufacturer    *string
	Model           *string
	SerialNumber    *string
	AssetTag        *string
	ServiceType     *string
}

// Detail returns the list's equipments ordered by description, with the three
// service flags set from the services requested in the list.
func (s *ListService) Detail(ctx context.Context, id uint) (*ListDetail, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.List{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: list not found", ErrNotFound)
	}

	var rows []listDetailRow
	err := db.Table("list_equipments AS le").
		Select(`le.id AS list_equipment_id, e.id AS equipment_id, e.description, e.manufacturer,
			e.model, e.serial_number, e.asset_tag, les.service_type`).
		Joins("JOIN equipments e ON e.id = le.equipment_id").
		Joins("LEFT JOIN list_equipment_services les ON les.list_equipment_id = le.id").
		Where("le.list_id = ?", id).
		Order("e.description ASC, le.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	detail := &ListDetail{ID: id, Items: []ListItem{}}
	index := make(map[uint]int)
	for _, r := range rows {
		i, ok := index[r.ListEquipmentID]
		if !ok {
			detail.Items = append(detail.Items, ListItem{
				ID:           r.ListEquipmentID,
				EquipmentID:  r.EquipmentID,
				Description:  r.Description,
				Manufacturer: r.Manufacturer,
				Model:        r.Model,
				SerialNumber: r.SerialNumber,
				AssetTag:     r.AssetTag,
				Status:       models.StatusPending,
			})
			i = len(detail.Items) - 1
			index[r.ListEquipmentID] = i
		}
		if r.ServiceType == nil {
			continue
		}
		switch *r.ServiceType {
		case models.ServiceCalibration:
			detail.Items[i].Calibration = true
		case models.ServiceElectricalSafety:
			detail.Items[i].ElectricalSafety = true
		case models.ServicePreventiveMaintenance:
			detail.Items[i].PreventiveMaintenance = true
		}
	}
	return detail, nil
}
