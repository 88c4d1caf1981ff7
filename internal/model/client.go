package model

import (
	"time"
)

// Client 合同归属的客户（可选维度）
type Client struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:100" json:"email,omitempty"`
	Company   string    `gorm:"size:255" json:"company,omitempty"`
	CreatedBy int64     `gorm:"not null;index" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}
