package repository

import (
	"gorm.io/gorm"

	"github.com/pwcx/contract_go_server/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(contract *model.Contract) error {
	return r.db.Create(contract).Error
}

func (r *ContractRepository) GetByID(id int64) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.Where("id = ?", id).First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *ContractRepository) GetByIDWithClient(id int64) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.Preload("Client").Where("id = ?", id).First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *ContractRepository) Update(contract *model.Contract) error {
	return r.db.Save(contract).Error
}

func (r *ContractRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Contract{}).Where("id = ?", id).Updates(fields).Error
}

func (r *ContractRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.Contract{}).Where("id = ?", id).Update("status", status).Error
}

func (r *ContractRepository) Delete(id int64) error {
	return r.db.Delete(&model.Contract{}, id).Error
}

// List 获取上传者的合同列表
func (r *ContractRepository) List(uploadedBy int64, page, pageSize int, search, status string, clientID *int64) ([]*model.Contract, int64, error) {
	var contracts []*model.Contract
	var total int64

	query := r.db.Model(&model.Contract{}).Where("uploaded_by = ?", uploadedBy)

	if search != "" {
		query = query.Where("title LIKE ? OR filename LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&contracts).Error; err != nil {
		return nil, 0, err
	}

	return contracts, total, nil
}

// CountByStatus 按状态统计合同数量
func (r *ContractRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row

	err := r.db.Model(&model.Contract{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, rw := range rows {
		result[rw.Status] = rw.Count
	}
	return result, nil
}

// CountApproved 统计已完成合同中的通过/否决数量
func (r *ContractRepository) CountApproved() (approved int64, rejected int64, err error) {
	err = r.db.Model(&model.Contract{}).
		Where("status = ? AND evaluation_result LIKE ?", model.StateCompleted, `%"approved":true%`).
		Count(&approved).Error
	if err != nil {
		return 0, 0, err
	}

	err = r.db.Model(&model.Contract{}).
		Where("status = ? AND evaluation_result LIKE ?", model.StateCompleted, `%"approved":false%`).
		Count(&rejected).Error
	if err != nil {
		return 0, 0, err
	}

	return approved, rejected, nil
}
