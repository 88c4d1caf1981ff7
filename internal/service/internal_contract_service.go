package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/model/dto"
)

// 内部回调接口使用的操作。worker 持内部令牌调用，不做归属校验。

// InternalGet 获取合同完整记录
func (s *ContractService) InternalGet(contractID int64) (*model.Contract, error) {
	contract, err := s.contractRepo.GetByID(contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return contract, nil
}

// InternalIsLatestRun 判断运行是否仍是最新。
// 只比较运行列表的最后一条，纯咨询性质，不阻止过期运行写入。
func (s *ContractService) InternalIsLatestRun(contractID int64, runID string) (bool, error) {
	contract, err := s.InternalGet(contractID)
	if err != nil {
		return false, err
	}
	return contract.IsLatestRun(runID), nil
}

// InternalChangeState 推进合同状态。
// 状态只做枚举校验，不限制转移方向；带 run_id 时在运行列表追加一条。
func (s *ContractService) InternalChangeState(contractID int64, state, runID string) error {
	if !model.IsValidState(state) {
		return ErrInvalidState
	}

	contract, err := s.InternalGet(contractID)
	if err != nil {
		return err
	}

	contract.Status = state
	if runID != "" {
		contract.PipelineRuns = append(contract.PipelineRuns, model.PipelineRun{
			RunID:     runID,
			State:     state,
			Timestamp: time.Now().UTC(),
		})
	}

	return s.contractRepo.Update(contract)
}

// InternalSetAnalysisResult 写入条款分析结果
func (s *ContractService) InternalSetAnalysisResult(contractID int64, result *model.AnalysisResult) error {
	contract, err := s.InternalGet(contractID)
	if err != nil {
		return err
	}

	contract.AnalysisResult.Result = result
	return s.contractRepo.Update(contract)
}

// InternalSetEvaluationResult 写入评估结果。
// 约束：必须已有分析结果。
func (s *ContractService) InternalSetEvaluationResult(contractID int64, result *model.EvaluationResult) error {
	contract, err := s.InternalGet(contractID)
	if err != nil {
		return err
	}

	if contract.AnalysisResult.Result == nil {
		return ErrAnalysisRequired
	}

	contract.EvaluationResult.Result = result
	return s.contractRepo.Update(contract)
}

// InternalMarkFailed 标记合同失败并记录原因。幂等，可重复调用。
func (s *ContractService) InternalMarkFailed(contractID int64, message string) error {
	contract, err := s.InternalGet(contractID)
	if err != nil {
		return err
	}

	// 已经失败且原因一致时不重复写
	if contract.Status == model.StateFailed && contract.ErrorMessage == message {
		return nil
	}

	contract.Status = model.StateFailed
	contract.ErrorMessage = message
	return s.contractRepo.Update(contract)
}

// InternalStatus 轻量状态查询
func (s *ContractService) InternalStatus(contractID int64) (*dto.ContractStatusResponse, error) {
	contract, err := s.InternalGet(contractID)
	if err != nil {
		return nil, err
	}
	return buildStatusResponse(contract), nil
}
