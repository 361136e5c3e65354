package models

import "time"

type Hospital struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null;index" json:"name"`
	CNPJ      *string   `gorm:"column:cnpj;size:20" json:"cnpj"`
	CreatedAt time.Time `json:"created_at"`
}

func (Hospital) TableName() string { return "hospitals" }
