package repository

import (
	"gorm.io/gorm"

	"github.com/pwcx/contract_go_server/internal/model"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(client *model.Client) error {
	return r.db.Create(client).Error
}

func (r *ClientRepository) GetByID(id int64) (*model.Client, error) {
	var client model.Client
	err := r.db.Where("id = ?", id).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) Update(client *model.Client) error {
	return r.db.Save(client).Error
}

func (r *ClientRepository) Delete(id int64) error {
	return r.db.Delete(&model.Client{}, id).Error
}

// List 获取创建者的客户列表
func (r *ClientRepository) List(createdBy int64, page, pageSize int, search string) ([]*model.Client, int64, error) {
	var clients []*model.Client
	var total int64

	query := r.db.Model(&model.Client{}).Where("created_by = ?", createdBy)

	if search != "" {
		query = query.Where("name LIKE ? OR company LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&clients).Error; err != nil {
		return nil, 0, err
	}

	return clients, total, nil
}
