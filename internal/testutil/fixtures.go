package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/pwcx/contract_go_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	nano := time.Now().UnixNano()
	user := &model.User{
		Username:     fmt.Sprintf("testuser_%d", nano%100000),
		Email:        fmt.Sprintf("test_%d@example.com", nano),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		IsActive:     true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// TestClient 创建测试客户
func TestClient(t *testing.T, db *gorm.DB, createdBy int64, opts ...func(*model.Client)) *model.Client {
	t.Helper()

	client := &model.Client{
		Name:      fmt.Sprintf("Client %d", time.Now().UnixNano()%100000),
		Company:   "Acme Corp",
		CreatedBy: createdBy,
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := db.Create(client).Error; err != nil {
		t.Fatalf("Failed to create test client: %v", err)
	}

	return client
}

// TestContract 创建测试合同
func TestContract(t *testing.T, db *gorm.DB, uploadedBy int64, opts ...func(*model.Contract)) *model.Contract {
	t.Helper()

	nano := time.Now().UnixNano()
	contract := &model.Contract{
		Filename:    fmt.Sprintf("contract_%d.pdf", nano%100000),
		Title:       fmt.Sprintf("Test Contract %d", nano%100000),
		FilePath:    fmt.Sprintf("contracts/2025/01/01/contract_%d.pdf", nano%100000),
		FileSize:    1024,
		ContentType: "application/pdf",
		UploadedBy:  uploadedBy,
		Status:      model.StatePending,
	}

	for _, opt := range opts {
		opt(contract)
	}

	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("Failed to create test contract: %v", err)
	}

	return contract
}

// WithStatus 设置合同状态
func WithStatus(status string) func(*model.Contract) {
	return func(c *model.Contract) {
		c.Status = status
	}
}

// WithClientID 设置合同归属的客户
func WithClientID(clientID int64) func(*model.Contract) {
	return func(c *model.Contract) {
		c.ClientID = &clientID
	}
}

// WithRun 追加一条流水线运行记录
func WithRun(runID, state string) func(*model.Contract) {
	return func(c *model.Contract) {
		c.PipelineRuns = append(c.PipelineRuns, model.PipelineRun{
			RunID:     runID,
			State:     state,
			Timestamp: time.Now().UTC(),
		})
	}
}
