package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pwcx/contract_go_server/config"
	"github.com/pwcx/contract_go_server/internal/api/middleware"
	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/model/dto"
	"github.com/pwcx/contract_go_server/internal/pipeline"
	"github.com/pwcx/contract_go_server/internal/pkg/jwt"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
	"github.com/pwcx/contract_go_server/internal/pkg/response"
	"github.com/pwcx/contract_go_server/internal/pkg/storage"
	"github.com/pwcx/contract_go_server/internal/repository"
	"github.com/pwcx/contract_go_server/internal/service"
	"github.com/pwcx/contract_go_server/internal/testutil"
)

const internalTestSecret = "internal-test-secret"

type internalHandlerEnv struct {
	router *gin.Engine
	db     *gorm.DB
	token  string
}

func setupInternalHandler(t *testing.T) (*internalHandlerEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.JWT.Secret = internalTestSecret
	cfg.JWT.InternalExpireHours = 24
	cfg.Server.InternalBaseURL = "http://localhost:8080"
	cfg.Upload.MaxSize = 1 << 20
	cfg.Upload.AllowedExtensions = []string{".pdf"}

	q := queue.NewQueue(rdb, "test_pipeline")
	coordinator := pipeline.NewCoordinator(q, cfg)

	contractService := service.NewContractService(
		repository.NewContractRepository(db),
		repository.NewClientRepository(db),
		store,
		coordinator,
		cfg,
	)
	handler := NewInternalContractHandler(contractService)

	router := gin.New()
	internal := router.Group("/api/contracts/:id/internal")
	internal.Use(middleware.InternalAuth(internalTestSecret))
	{
		internal.GET("", handler.Get)
		internal.GET("/status", handler.Status)
		internal.GET("/pipeline/:run_id/is-latest", handler.IsLatestRun)
		internal.PUT("/change-state", handler.ChangeState)
		internal.POST("/set-analysis-result", handler.SetAnalysisResult)
		internal.POST("/set-evaluation-result", handler.SetEvaluationResult)
		internal.PUT("/failed", handler.ReportFailure)
	}

	token, err := jwt.GenerateInternalToken(internalTestSecret, 24)
	require.NoError(t, err)

	cleanup := func() {
		rdb.Close()
		mr.Close()
		testutil.CleanupTestDB(t, db)
	}

	return &internalHandlerEnv{router: router, db: db, token: token}, cleanup
}

func (env *internalHandlerEnv) request(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()

	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	env.router.ServeHTTP(w, req)
	return w
}

func TestInternalHandler_Auth(t *testing.T) {
	env, cleanup := setupInternalHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID)
	path := fmt.Sprintf("/api/contracts/%d/internal", contract.ID)

	t.Run("missing token", func(t *testing.T) {
		w := env.request(t, "GET", path, nil, "")
		resp := parseResponse(t, w)
		assert.Equal(t, response.CodeAuthFailed, resp.Code)
	})

	t.Run("user token rejected", func(t *testing.T) {
		userToken, err := jwt.GenerateToken(user.ID, internalTestSecret, 24)
		require.NoError(t, err)

		w := env.request(t, "GET", path, nil, userToken)
		resp := parseResponse(t, w)
		assert.Equal(t, response.CodeAuthFailed, resp.Code)
	})

	t.Run("internal token accepted", func(t *testing.T) {
		w := env.request(t, "GET", path, nil, env.token)
		resp := parseResponse(t, w)
		assert.Equal(t, response.CodeSuccess, resp.Code)
	})
}

func TestInternalHandler_Get(t *testing.T) {
	env, cleanup := setupInternalHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID)

	w := env.request(t, "GET", fmt.Sprintf("/api/contracts/%d/internal", contract.ID), nil, env.token)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var found model.Contract
	require.NoError(t, json.Unmarshal(data, &found))
	assert.Equal(t, contract.ID, found.ID)
	assert.Equal(t, contract.FilePath, found.FilePath)

	t.Run("missing contract", func(t *testing.T) {
		w := env.request(t, "GET", "/api/contracts/99999/internal", nil, env.token)
		resp := parseResponse(t, w)
		assert.Equal(t, response.CodeResourceNotFound, resp.Code)
	})
}

func TestInternalHandler_IsLatestRun(t *testing.T) {
	env, cleanup := setupInternalHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID,
		testutil.WithRun("run-1", model.StateProcessing),
		testutil.WithRun("run-2", model.StateProcessing),
	)

	check := func(runID string) bool {
		path := fmt.Sprintf("/api/contracts/%d/internal/pipeline/%s/is-latest", contract.ID, runID)
		w := env.request(t, "GET", path, nil, env.token)
		resp := parseResponse(t, w)
		require.Equal(t, response.CodeSuccess, resp.Code)

		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var result dto.IsLatestRunResponse
		require.NoError(t, json.Unmarshal(data, &result))
		return result.IsLatest
	}

	assert.True(t, check("run-2"))
	assert.False(t, check("run-1"))
	assert.False(t, check("run-x"))
}

func TestInternalHandler_ChangeState(t *testing.T) {
	env, cleanup := setupInternalHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID)
	base := fmt.Sprintf("/api/contracts/%d/internal/change-state", contract.ID)

	t.Run("valid state with run id", func(t *testing.T) {
		w := env.request(t, "PUT", base+"?state=analyzing&run_id=run-1", nil, env.token)
		resp := parseResponse(t, w)
		require.Equal(t, response.CodeSuccess, resp.Code)

		var found model.Contract
		require.NoError(t, env.db.First(&found, contract.ID).Error)
		assert.Equal(t, model.StateAnalyzing, found.Status)
		require.Len(t, found.PipelineRuns, 1)
		assert.Equal(t, "run-1", found.PipelineRuns[0].RunID)
	})

	t.Run("missing state param", func(t *testing.T) {
		w := env.request(t, "PUT", base, nil, env.token)
		resp := parseResponse(t, w)
		assert.Equal(t, response.CodeParamError, resp.Code)
	})

	t.Run("invalid state", func(t *testing.T) {
		w := env.request(t, "PUT", base+"?state=exploded", nil, env.token)
		resp := parseResponse(t, w)
		assert.Equal(t, response.CodeParamError, resp.Code)
	})
}

func TestInternalHandler_Results(t *testing.T) {
	env, cleanup := setupInternalHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID)

	analysisPath := fmt.Sprintf("/api/contracts/%d/internal/set-analysis-result", contract.ID)
	evaluationPath := fmt.Sprintf("/api/contracts/%d/internal/set-evaluation-result", contract.ID)

	analysis := model.AnalysisResult{
		Clauses: []model.ExtractedClause{
			{Type: model.ClausePaymentTerms, Content: "Net 30.", Confidence: 0.92},
		},
		ModelUsed: "gpt-4o",
	}
	evaluation := model.EvaluationResult{
		Approved:  true,
		Reasoning: "Low risk.",
		RiskScore: 0.15,
	}

	t.Run("evaluation before analysis is a conflict", func(t *testing.T) {
		w := env.request(t, "POST", evaluationPath, evaluation, env.token)
		resp := parseResponse(t, w)
		assert.Equal(t, response.CodeStateConflict, resp.Code)
	})

	t.Run("analysis then evaluation", func(t *testing.T) {
		w := env.request(t, "POST", analysisPath, analysis, env.token)
		require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

		w = env.request(t, "POST", evaluationPath, evaluation, env.token)
		require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

		var found model.Contract
		require.NoError(t, env.db.First(&found, contract.ID).Error)
		require.NotNil(t, found.AnalysisResult.Result)
		require.NotNil(t, found.EvaluationResult.Result)
		assert.True(t, found.EvaluationResult.Result.Approved)
	})
}

func TestInternalHandler_ReportFailure(t *testing.T) {
	env, cleanup := setupInternalHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID, testutil.WithStatus(model.StateAnalyzing))
	path := fmt.Sprintf("/api/contracts/%d/internal/failed", contract.ID)

	body := dto.ReportFailureRequest{ErrorMessage: "model timeout"}

	w := env.request(t, "PUT", path, body, env.token)
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	// 重复上报也成功
	w = env.request(t, "PUT", path, body, env.token)
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	var found model.Contract
	require.NoError(t, env.db.First(&found, contract.ID).Error)
	assert.Equal(t, model.StateFailed, found.Status)
	assert.Equal(t, "model timeout", found.ErrorMessage)
}

func TestInternalHandler_Status(t *testing.T) {
	env, cleanup := setupInternalHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID, testutil.WithRun("run-9", model.StateProcessing))

	w := env.request(t, "GET", fmt.Sprintf("/api/contracts/%d/internal/status", contract.ID), nil, env.token)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var status dto.ContractStatusResponse
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, "run-9", status.LatestRunID)
	assert.False(t, status.HasAnalysis)
}
