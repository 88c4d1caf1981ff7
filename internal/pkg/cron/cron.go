package cron

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/pwcx/contract_go_server/internal/pkg/storage"
	"github.com/pwcx/contract_go_server/internal/repository"
)

type Service struct {
	store        storage.Store
	contractRepo *repository.ContractRepository
	ttlHours     int
	stopChan     chan struct{}
}

func NewService(store storage.Store, contractRepo *repository.ContractRepository, ttlHours int) *Service {
	return &Service{
		store:        store,
		contractRepo: contractRepo,
		ttlHours:     ttlHours,
		stopChan:     make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runCleanup()
	log.Println("Cron service started (parsed text cleanup)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runCleanup 每小时执行一次清理
func (s *Service) runCleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunNow()
		}
	}
}

// RunNow 立即执行一次清理（cleanup 命令和测试使用）
func (s *Service) RunNow() int {
	cleaned := s.cleanupParsedTexts()
	if cleaned > 0 {
		log.Printf("Cleanup summary: parsed=%d", cleaned)
	}
	return cleaned
}

// cleanupParsedTexts 清理过期的中间解析文本。
// 最新一次运行的文本始终保留，其余超过 TTL 的删除。
func (s *Service) cleanupParsedTexts() int {
	ttlHours := s.ttlHours
	if ttlHours <= 0 {
		ttlHours = 1
	}
	expire := time.Duration(ttlHours) * time.Hour

	objects, err := s.store.List("parsed")
	if err != nil {
		log.Printf("Cleanup parsed: failed to list objects: %v", err)
		return 0
	}

	// 合同 -> 最新 run，避免对每个对象查库
	latestRuns := make(map[int64]string)

	cleaned := 0
	for _, obj := range objects {
		if time.Since(obj.ModTime) <= expire {
			continue
		}

		contractID, runID, ok := parseParsedKey(obj.Key)
		if !ok {
			continue
		}

		latest, seen := latestRuns[contractID]
		if !seen {
			latest = s.lookupLatestRun(contractID)
			latestRuns[contractID] = latest
		}
		if runID == latest && latest != "" {
			continue
		}

		if err := s.store.Delete(obj.Key); err != nil {
			log.Printf("Cleanup parsed: failed to delete %s: %v", obj.Key, err)
			continue
		}
		cleaned++
	}
	return cleaned
}

func (s *Service) lookupLatestRun(contractID int64) string {
	if s.contractRepo == nil {
		return ""
	}
	contract, err := s.contractRepo.GetByID(contractID)
	if err != nil {
		return ""
	}
	return contract.LatestRunID()
}

// parseParsedKey 解析 parsed/{contract_id}/{run_id}/... 形式的 key
func parseParsedKey(key string) (int64, string, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 4 || parts[0] != "parsed" {
		return 0, "", false
	}
	contractID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return contractID, parts[2], true
}
