package dto

import "time"

// CreateClientRequest 创建客户
type CreateClientRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Email   string `json:"email" binding:"omitempty,email"`
	Company string `json:"company" binding:"max=255"`
}

// UpdateClientRequest 更新客户
type UpdateClientRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Company *string `json:"company"`
}

// ClientInfo 客户信息
type ClientInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
