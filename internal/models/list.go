package models

import "time"

// Service types a list can request for an equipment.
const (
	ServiceCalibration           = "CALIBRATION"
	ServiceElectricalSafety      = "TSE"
	ServicePreventiveMaintenance = "MP"
)

// ValidServiceType reports whether t is one of the known service types.
func ValidServiceType(t string) bool {
	switch t {
	case ServiceCalibration, ServiceElectricalSafety, ServicePreventiveMaintenance:
		return true
	}
	return false
}

// List is a maintenance work order for one hospital.
type List struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	HospitalID  uint            `gorm:"index;not null" json:"hospital_id"`
	Hospital    *Hospital       `gorm:"foreignKey:HospitalID" json:"-"`
	ListType    string          `gorm:"size:50;not null" json:"list_type"`
	Description *string         `gorm:"type:text" json:"description"`
	Status      string          `gorm:"size:20;default:IN_PROGRESS;not null;index" json:"status"`
	CreatedBy   *uint           `json:"created_by,omitempty"`
	Equipments  []ListEquipment `gorm:"foreignKey:ListID" json:"-"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

func (List) TableName() string { return "lists" }

type ListEquipment struct {
	ID          uint                   `gorm:"primaryKey" json:"id"`
	ListID      uint                   `gorm:"index;not null" json:"list_id"`
	EquipmentID uint                   `gorm:"index;not null" json:"equipment_id"`
	Equipment   *Equipment             `gorm:"foreignKey:EquipmentID" json:"-"`
	Services    []ListEquipmentService `gorm:"foreignKey:ListEquipmentID" json:"-"`
}

func (ListEquipment) TableName() string { return "list_equipments" }

type ListEquipmentService struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	ListEquipmentID uint   `gorm:"index;not null" json:"list_equipment_id"`
	ServiceType     string `gorm:"size:20;not null" json:"service_type"`
	ServiceStatus   string `gorm:"size:20;default:PENDING;not null" json:"service_status"`
}

func (ListEquipmentService) TableName() string { return "list_equipment_services" }
