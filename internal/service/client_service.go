package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/model/dto"
	"github.com/pwcx/contract_go_server/internal/repository"
)

type ClientService struct {
	clientRepo *repository.ClientRepository
}

func NewClientService(clientRepo *repository.ClientRepository) *ClientService {
	return &ClientService{clientRepo: clientRepo}
}

// Create 创建客户
func (s *ClientService) Create(userID int64, req *dto.CreateClientRequest) (*dto.ClientInfo, error) {
	client := &model.Client{
		Name:      req.Name,
		Email:     req.Email,
		Company:   req.Company,
		CreatedBy: userID,
	}

	if err := s.clientRepo.Create(client); err != nil {
		return nil, err
	}
	return buildClientInfo(client), nil
}

// GetByID 获取客户（校验归属）
func (s *ClientService) GetByID(userID, clientID int64) (*dto.ClientInfo, error) {
	client, err := s.getOwned(userID, clientID)
	if err != nil {
		return nil, err
	}
	return buildClientInfo(client), nil
}

// List 获取客户列表
func (s *ClientService) List(userID int64, page, pageSize int, search string) ([]*dto.ClientInfo, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	clients, total, err := s.clientRepo.List(userID, page, pageSize, search)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.ClientInfo, 0, len(clients))
	for _, c := range clients {
		items = append(items, buildClientInfo(c))
	}
	return items, total, nil
}

// Update 更新客户
func (s *ClientService) Update(userID, clientID int64, req *dto.UpdateClientRequest) (*dto.ClientInfo, error) {
	client, err := s.getOwned(userID, clientID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Company != nil {
		client.Company = *req.Company
	}

	if err := s.clientRepo.Update(client); err != nil {
		return nil, err
	}
	return buildClientInfo(client), nil
}

// Delete 删除客户
func (s *ClientService) Delete(userID, clientID int64) error {
	client, err := s.getOwned(userID, clientID)
	if err != nil {
		return err
	}
	return s.clientRepo.Delete(client.ID)
}

func (s *ClientService) getOwned(userID, clientID int64) (*model.Client, error) {
	client, err := s.clientRepo.GetByID(clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if client.CreatedBy != userID {
		return nil, ErrClientNotFound
	}
	return client, nil
}

func buildClientInfo(c *model.Client) *dto.ClientInfo {
	return &dto.ClientInfo{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Company:   c.Company,
		CreatedAt: c.CreatedAt,
	}
}
