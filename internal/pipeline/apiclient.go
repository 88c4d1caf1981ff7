package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
)

const (
	apiTimeout    = 30 * time.Second
	apiRetries    = 3
	apiRetryDelay = 1 * time.Second
)

// APIClient 执行器回调内部 API 的 HTTP 客户端。
// 每个流水线任务一个实例，携带该次运行的令牌和 run_id。
// 网络错误和 5xx 重试 3 次，固定间隔 1 秒；4xx 和业务错误不重试。
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	contractID int64
	runID      string
}

func NewAPIClient(task *queue.TaskContext) *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: apiTimeout},
		baseURL:    task.APIBaseURL,
		token:      task.APIAuthToken,
		contractID: task.ContractID,
		runID:      task.RunID,
	}
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError 内部 API 返回的业务错误
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("internal api error (code %d): %s", e.Code, e.Message)
}

func (c *APIClient) endpoint(suffix string) string {
	return fmt.Sprintf("%s/api/contracts/%d/internal%s", c.baseURL, c.contractID, suffix)
}

func (c *APIClient) do(ctx context.Context, method, url string, body []byte) (json.RawMessage, error) {
	var lastErr error

	for attempt := 1; attempt <= apiRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(apiRetryDelay):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("internal api returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("internal api returned status %d: %s", resp.StatusCode, data)
		}

		var envelope apiEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode internal api response: %w", err)
		}
		if envelope.Code != 0 {
			return nil, &APIError{Code: envelope.Code, Message: envelope.Message}
		}
		return envelope.Data, nil
	}

	return nil, fmt.Errorf("internal api request failed after %d attempts: %w", apiRetries, lastErr)
}

// GetContract 获取合同详情
func (c *APIClient) GetContract(ctx context.Context) (*model.Contract, error) {
	data, err := c.do(ctx, http.MethodGet, c.endpoint(""), nil)
	if err != nil {
		return nil, err
	}

	var contract model.Contract
	if err := json.Unmarshal(data, &contract); err != nil {
		return nil, fmt.Errorf("failed to decode contract: %w", err)
	}
	return &contract, nil
}

// IsLatestRun 询问本次运行是否仍是最新运行
func (c *APIClient) IsLatestRun(ctx context.Context) (bool, error) {
	url := c.endpoint(fmt.Sprintf("/pipeline/%s/is-latest", c.runID))
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	var result struct {
		IsLatest bool `json:"is_latest"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return false, fmt.Errorf("failed to decode is-latest response: %w", err)
	}
	return result.IsLatest, nil
}

// ChangeState 推进合同状态，并在运行记录上追加一条
func (c *APIClient) ChangeState(ctx context.Context, state string) error {
	u := c.endpoint("/change-state") + "?" + url.Values{
		"state":  {state},
		"run_id": {c.runID},
	}.Encode()

	_, err := c.do(ctx, http.MethodPut, u, nil)
	return err
}

// SetAnalysisResult 写入条款分析结果
func (c *APIClient) SetAnalysisResult(ctx context.Context, result *model.AnalysisResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, c.endpoint("/set-analysis-result"), body)
	return err
}

// SetEvaluationResult 写入健康度评估结果
func (c *APIClient) SetEvaluationResult(ctx context.Context, result *model.EvaluationResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, c.endpoint("/set-evaluation-result"), body)
	return err
}

// ReportFailure 标记合同失败。接口幂等，重复调用安全。
func (c *APIClient) ReportFailure(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"error_message": message})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPut, c.endpoint("/failed"), body)
	return err
}
