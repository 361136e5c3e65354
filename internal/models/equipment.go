package models

import "time"

const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

// Equipment is a device registered under a hospital. The three service flags
// record which services the device normally receives.
type Equipment struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	HospitalID            uint      `gorm:"index;not null" json:"hospital_id"`
	Hospital              *Hospital `gorm:"foreignKey:HospitalID" json:"-"`
	Description           string    `gorm:"size:255;not null" json:"description"`
	Manufacturer          *string   `gorm:"size:200" json:"manufacturer"`
	Model                 *string   `gorm:"size:200" json:"model"`
	SerialNumber          *string   `gorm:"size:100" json:"serial_number"`
	AssetTag              *string   `gorm:"size:100" json:"asset_tag"`
	Calibration           bool      `gorm:"default:false" json:"calibration"`
	ElectricalSafety      bool      `gorm:"default:false" json:"electrical_safety"`
	PreventiveMaintenance bool      `gorm:"default:false" json:"preventive_maintenance"`
	Notes                 *string   `gorm:"type:text" json:"notes"`
	Status                string    `gorm:"size:20;default:PENDING;not null" json:"status"`
	CreatedAt             time.Time `json:"created_at"`
}

func (Equipment) TableName() string { return "equipments" }
