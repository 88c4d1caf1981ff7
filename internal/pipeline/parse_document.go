package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pwcx/contract_go_server/internal/pkg/pdfext"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
	"github.com/pwcx/contract_go_server/internal/pkg/storage"
)

// ParsedMeta 解析步骤的附加产出，与文本一起落盘
type ParsedMeta struct {
	PageCount int `json:"page_count"`
	CharCount int `json:"char_count"`
}

// ParseDocumentExecutor 从原始 PDF 提取合同文本并存入中间存储。
// 开启 AI 解析时优先让模型直接解析原始文档（扫描件也能处理），
// 失败再退回 PDF 库逐页提取；两条路都走不通才算步骤失败。
type ParseDocumentExecutor struct {
	deps Deps
}

func (e *ParseDocumentExecutor) Name() string {
	return StepParseDocument
}

func (e *ParseDocumentExecutor) Execute(ctx context.Context, task *queue.TaskContext, sig queue.StepSignature) error {
	api := NewAPIClient(task)

	if err := beginStep(ctx, api, task, sig); err != nil {
		return err
	}

	contract, err := api.GetContract(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch contract: %w", err)
	}

	raw, err := e.deps.Store.Load(contract.FilePath)
	if err != nil {
		msg := fmt.Sprintf("Document parsing failed: cannot read %s", contract.FilePath)
		api.ReportFailure(ctx, msg)
		return fmt.Errorf("%s: %w", msg, err)
	}

	text, pageCount, err := e.parse(ctx, raw, contract.Filename)
	if err != nil {
		msg := fmt.Sprintf("Document parsing failed: %v", err)
		api.ReportFailure(ctx, msg)
		return fmt.Errorf("%w: %s", ErrValidation, msg)
	}

	key := storage.ParsedTextKey(task.ContractID, task.RunID)
	if err := e.deps.Store.Save(key, []byte(text), "text/plain; charset=utf-8"); err != nil {
		msg := "Document parsing failed: cannot persist parsed text"
		api.ReportFailure(ctx, msg)
		return fmt.Errorf("%s: %w", msg, err)
	}

	meta, _ := json.Marshal(ParsedMeta{PageCount: pageCount, CharCount: len(text)})
	metaKey := storage.ParsedMetaKey(task.ContractID, task.RunID)
	if err := e.deps.Store.Save(metaKey, meta, "application/json"); err != nil {
		// 元信息丢失不值得让整条链失败
		log.Printf("Failed to persist parse metadata for contract %d (run %s): %v", task.ContractID, task.RunID, err)
	}

	log.Printf("Parsed contract %d (run %s): %d pages, %d bytes of text", task.ContractID, task.RunID, pageCount, len(text))
	return nil
}

// parse 先走 AI 解析（若开启），失败回退到 PDF 库
func (e *ParseDocumentExecutor) parse(ctx context.Context, raw []byte, filename string) (string, int, error) {
	if e.deps.ParseWithAI && e.deps.AI != nil {
		doc, err := e.deps.AI.ParseDocument(ctx, raw, filename)
		if err == nil {
			return doc.Text, doc.PageCount, nil
		}
		log.Printf("AI parsing failed for %s, falling back to library: %v", filename, err)
	}

	text, err := pdfext.ExtractText(raw)
	if err != nil {
		return "", 0, err
	}

	pageCount := 0
	if n, err := pdfext.PageCount(raw); err == nil {
		pageCount = n
	}
	return text, pageCount, nil
}
