package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pwcx/contract_go_server/config"
	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/model/dto"
	"github.com/pwcx/contract_go_server/internal/pipeline"
	"github.com/pwcx/contract_go_server/internal/pkg/storage"
	"github.com/pwcx/contract_go_server/internal/repository"
)

var (
	ErrContractNotFound   = errors.New("合同不存在")
	ErrNotContractOwner   = errors.New("无权访问该合同")
	ErrClientNotFound     = errors.New("客户不存在")
	ErrInvalidFileType    = errors.New("不支持的文件类型")
	ErrFileTooLarge       = errors.New("文件超出大小限制")
	ErrAnalysisInProgress = errors.New("合同正在分析中")
	ErrInvalidState       = errors.New("invalid contract state")
	ErrAnalysisRequired   = errors.New("analysis must be completed first")
)

// 允许触发分析的状态
var triggerableStates = map[string]struct{}{
	model.StatePending:   {},
	model.StateFailed:    {},
	model.StateCompleted: {},
}

type ContractService struct {
	contractRepo *repository.ContractRepository
	clientRepo   *repository.ClientRepository
	store        storage.Store
	coordinator  *pipeline.Coordinator
	cfg          *config.Config
}

func NewContractService(
	contractRepo *repository.ContractRepository,
	clientRepo *repository.ClientRepository,
	store storage.Store,
	coordinator *pipeline.Coordinator,
	cfg *config.Config,
) *ContractService {
	return &ContractService{
		contractRepo: contractRepo,
		clientRepo:   clientRepo,
		store:        store,
		coordinator:  coordinator,
		cfg:          cfg,
	}
}

// Upload 保存上传的合同文件并创建记录
func (s *ContractService) Upload(userID int64, filename, title string, clientID *int64, data []byte) (*dto.UploadContractResponse, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, e := range s.cfg.Upload.AllowedExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidFileType
	}

	if int64(len(data)) > s.cfg.Upload.MaxSize {
		return nil, ErrFileTooLarge
	}

	if clientID != nil {
		if err := s.checkClientOwnership(userID, *clientID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	// 防止同日同名覆盖
	storedName := fmt.Sprintf("%d_%s", now.UnixNano(), filepath.Base(filename))
	key := storage.ContractKey(storedName, now)

	if err := s.store.Save(key, data, "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store contract file: %w", err)
	}

	contract := &model.Contract{
		Filename:    filepath.Base(filename),
		Title:       title,
		FilePath:    key,
		FileSize:    int64(len(data)),
		ContentType: "application/pdf",
		ClientID:    clientID,
		UploadedBy:  userID,
		Status:      model.StatePending,
	}

	if err := s.contractRepo.Create(contract); err != nil {
		// 记录创建失败时回收孤儿文件
		s.store.Delete(key)
		return nil, err
	}

	return &dto.UploadContractResponse{
		ContractID: contract.ID,
		Filename:   contract.Filename,
		Status:     contract.Status,
	}, nil
}

// GetByID 获取合同详情（校验归属）
func (s *ContractService) GetByID(userID, contractID int64) (*dto.ContractDetail, error) {
	contract, err := s.getOwned(userID, contractID)
	if err != nil {
		return nil, err
	}
	return buildContractDetail(contract), nil
}

// List 获取合同列表
func (s *ContractService) List(userID int64, page, pageSize int, search, status string, clientID *int64) ([]*dto.ContractListItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	contracts, total, err := s.contractRepo.List(userID, page, pageSize, search, status, clientID)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.ContractListItem, 0, len(contracts))
	for _, c := range contracts {
		items = append(items, &dto.ContractListItem{
			ID:        c.ID,
			Filename:  c.Filename,
			Title:     c.Title,
			Status:    c.Status,
			ClientID:  c.ClientID,
			FileSize:  c.FileSize,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return items, total, nil
}

// Update 更新合同元数据
func (s *ContractService) Update(userID, contractID int64, req *dto.UpdateContractRequest) (*dto.ContractDetail, error) {
	contract, err := s.getOwned(userID, contractID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		contract.Title = *req.Title
	}
	if req.ClientID != nil {
		if err := s.checkClientOwnership(userID, *req.ClientID); err != nil {
			return nil, err
		}
		contract.ClientID = req.ClientID
	}

	if err := s.contractRepo.Update(contract); err != nil {
		return nil, err
	}
	return buildContractDetail(contract), nil
}

// Delete 删除合同及其文件
func (s *ContractService) Delete(userID, contractID int64) error {
	contract, err := s.getOwned(userID, contractID)
	if err != nil {
		return err
	}

	if err := s.contractRepo.Delete(contract.ID); err != nil {
		return err
	}

	// 文件删除失败不影响记录删除
	s.store.Delete(contract.FilePath)
	return nil
}

// Download 读取原始合同文件
func (s *ContractService) Download(userID, contractID int64) ([]byte, string, string, error) {
	contract, err := s.getOwned(userID, contractID)
	if err != nil {
		return nil, "", "", err
	}

	data, err := s.store.Load(contract.FilePath)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to load contract file: %w", err)
	}
	return data, contract.ContentType, contract.Filename, nil
}

// TriggerAnalysis 触发一次完整的分析流水线。
// 只允许从 pending/failed/completed 触发；
// 追加一条运行记录并置为 processing，然后入队。
func (s *ContractService) TriggerAnalysis(ctx context.Context, userID, contractID int64) (*dto.TriggerAnalysisResponse, error) {
	contract, err := s.getOwned(userID, contractID)
	if err != nil {
		return nil, err
	}

	if _, ok := triggerableStates[contract.Status]; !ok {
		return nil, ErrAnalysisInProgress
	}

	runID := s.coordinator.NewRunID()
	contract.PipelineRuns = append(contract.PipelineRuns, model.PipelineRun{
		RunID:     runID,
		State:     model.StateProcessing,
		Timestamp: time.Now().UTC(),
	})
	contract.Status = model.StateProcessing
	contract.ErrorMessage = ""

	if err := s.contractRepo.Update(contract); err != nil {
		return nil, err
	}

	taskID, err := s.coordinator.Enqueue(ctx, contract.ID, userID, runID)
	if err != nil {
		return nil, err
	}

	return &dto.TriggerAnalysisResponse{
		ContractID: contract.ID,
		RunID:      runID,
		TaskID:     taskID,
		Status:     contract.Status,
	}, nil
}

// Status 轻量状态查询
func (s *ContractService) Status(userID, contractID int64) (*dto.ContractStatusResponse, error) {
	contract, err := s.getOwned(userID, contractID)
	if err != nil {
		return nil, err
	}
	return buildStatusResponse(contract), nil
}

func (s *ContractService) getOwned(userID, contractID int64) (*model.Contract, error) {
	contract, err := s.contractRepo.GetByID(contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	if contract.UploadedBy != userID {
		return nil, ErrNotContractOwner
	}
	return contract, nil
}

func (s *ContractService) checkClientOwnership(userID, clientID int64) error {
	client, err := s.clientRepo.GetByID(clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	if client.CreatedBy != userID {
		return ErrClientNotFound
	}
	return nil
}

func buildContractDetail(c *model.Contract) *dto.ContractDetail {
	return &dto.ContractDetail{
		ID:               c.ID,
		Filename:         c.Filename,
		Title:            c.Title,
		FileSize:         c.FileSize,
		ContentType:      c.ContentType,
		ClientID:         c.ClientID,
		Status:           c.Status,
		ErrorMessage:     c.ErrorMessage,
		AnalysisResult:   c.AnalysisResult.Result,
		EvaluationResult: c.EvaluationResult.Result,
		PipelineRuns:     c.PipelineRuns,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func buildStatusResponse(c *model.Contract) *dto.ContractStatusResponse {
	return &dto.ContractStatusResponse{
		ContractID:    c.ID,
		Status:        c.Status,
		ErrorMessage:  c.ErrorMessage,
		LatestRunID:   c.LatestRunID(),
		HasAnalysis:   c.AnalysisResult.Result != nil,
		HasEvaluation: c.EvaluationResult.Result != nil,
	}
}
