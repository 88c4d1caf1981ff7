package storage

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/pwcx/contract_go_server/config"
)

var ErrNotFound = errors.New("object not found")

// ObjectInfo 存储对象的基本信息，用于清理任务
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Store 统一的 blob 存储接口，本地磁盘和 OSS 各有一个实现
type Store interface {
	Save(key string, data []byte, contentType string) error
	Load(key string) ([]byte, error)
	Delete(key string) error
	Exists(key string) (bool, error)
	List(prefix string) ([]ObjectInfo, error)
	URL(key string) string
}

// New 根据配置创建存储实现
func New(cfg *config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocal(cfg.LocalPath)
	case "oss":
		return NewOSS(&cfg.OSS)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ContractKey 原始合同文件的存储路径，按上传日期分目录
func ContractKey(filename string, now time.Time) string {
	return path.Join("contracts", now.Format("2006/01/02"), filename)
}

// ParsedTextKey 解析出的合同文本路径，按合同和运行隔离
func ParsedTextKey(contractID int64, runID string) string {
	return path.Join("parsed", fmt.Sprintf("%d", contractID), runID, "text.txt")
}

// ParsedMetaKey 解析产出的元信息（页数、字符数）路径，与文本同目录
func ParsedMetaKey(contractID int64, runID string) string {
	return path.Join("parsed", fmt.Sprintf("%d", contractID), runID, "meta.json")
}
