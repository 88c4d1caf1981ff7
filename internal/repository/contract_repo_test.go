package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/testutil"
)

func TestContractRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewContractRepository(db)
	user := testutil.TestUser(t, db)

	t.Run("create and get by id", func(t *testing.T) {
		contract := &model.Contract{
			Filename:    "msa.pdf",
			Title:       "Master Services Agreement",
			FilePath:    "contracts/2025/01/15/msa.pdf",
			FileSize:    2048,
			ContentType: "application/pdf",
			UploadedBy:  user.ID,
			Status:      model.StatePending,
		}

		err := repo.Create(contract)
		require.NoError(t, err)
		assert.NotZero(t, contract.ID)

		found, err := repo.GetByID(contract.ID)
		require.NoError(t, err)
		assert.Equal(t, "msa.pdf", found.Filename)
		assert.Equal(t, model.StatePending, found.Status)
		assert.Empty(t, found.PipelineRuns)
		assert.Nil(t, found.AnalysisResult.Result)
		assert.Nil(t, found.EvaluationResult.Result)
	})

	t.Run("get missing contract", func(t *testing.T) {
		_, err := repo.GetByID(99999)
		assert.Error(t, err)
	})
}

func TestContractRepository_PipelineRunsRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewContractRepository(db)
	user := testutil.TestUser(t, db)

	contract := testutil.TestContract(t, db, user.ID,
		testutil.WithRun("run-1", model.StateProcessing),
		testutil.WithRun("run-2", model.StateProcessing),
	)

	found, err := repo.GetByID(contract.ID)
	require.NoError(t, err)

	require.Len(t, found.PipelineRuns, 2)
	assert.Equal(t, "run-1", found.PipelineRuns[0].RunID)
	assert.Equal(t, "run-2", found.PipelineRuns[1].RunID)
	assert.Equal(t, "run-2", found.LatestRunID())
	assert.True(t, found.IsLatestRun("run-2"))
	assert.False(t, found.IsLatestRun("run-1"))
}

func TestContractRepository_ResultColumns(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewContractRepository(db)
	user := testutil.TestUser(t, db)
	contract := testutil.TestContract(t, db, user.ID)

	page := 2
	contract.AnalysisResult.Result = &model.AnalysisResult{
		Clauses: []model.ExtractedClause{
			{Type: model.ClausePaymentTerms, Content: "Net 30.", Confidence: 0.9, PageNumber: &page},
		},
		ModelUsed: "gpt-4o",
	}
	contract.EvaluationResult.Result = &model.EvaluationResult{
		Approved:  true,
		Reasoning: "Standard terms.",
		RiskScore: 0.2,
	}
	require.NoError(t, repo.Update(contract))

	found, err := repo.GetByID(contract.ID)
	require.NoError(t, err)

	require.NotNil(t, found.AnalysisResult.Result)
	require.Len(t, found.AnalysisResult.Result.Clauses, 1)
	assert.Equal(t, model.ClausePaymentTerms, found.AnalysisResult.Result.Clauses[0].Type)
	require.NotNil(t, found.AnalysisResult.Result.Clauses[0].PageNumber)
	assert.Equal(t, 2, *found.AnalysisResult.Result.Clauses[0].PageNumber)

	require.NotNil(t, found.EvaluationResult.Result)
	assert.True(t, found.EvaluationResult.Result.Approved)
	assert.Equal(t, 0.2, found.EvaluationResult.Result.RiskScore)
}

func TestContractRepository_UpdateStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewContractRepository(db)
	user := testutil.TestUser(t, db)
	contract := testutil.TestContract(t, db, user.ID)

	err := repo.UpdateStatus(contract.ID, model.StateProcessing)
	require.NoError(t, err)

	found, err := repo.GetByID(contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateProcessing, found.Status)
}

func TestContractRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewContractRepository(db)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	client := testutil.TestClient(t, db, user.ID)

	testutil.TestContract(t, db, user.ID, func(c *model.Contract) {
		c.Title = "Alpha NDA"
		c.Status = model.StateCompleted
	})
	testutil.TestContract(t, db, user.ID, func(c *model.Contract) {
		c.Title = "Beta MSA"
	}, testutil.WithClientID(client.ID))
	testutil.TestContract(t, db, other.ID)

	t.Run("lists only own contracts", func(t *testing.T) {
		contracts, total, err := repo.List(user.ID, 1, 10, "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, contracts, 2)
	})

	t.Run("filter by search", func(t *testing.T) {
		contracts, total, err := repo.List(user.ID, 1, 10, "Alpha", "", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "Alpha NDA", contracts[0].Title)
	})

	t.Run("filter by status", func(t *testing.T) {
		_, total, err := repo.List(user.ID, 1, 10, "", model.StateCompleted, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("filter by client", func(t *testing.T) {
		contracts, total, err := repo.List(user.ID, 1, 10, "", "", &client.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "Beta MSA", contracts[0].Title)
	})

	t.Run("pagination", func(t *testing.T) {
		contracts, total, err := repo.List(user.ID, 1, 1, "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, contracts, 1)
	})
}

func TestContractRepository_CountByStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewContractRepository(db)
	user := testutil.TestUser(t, db)

	testutil.TestContract(t, db, user.ID, testutil.WithStatus(model.StatePending))
	testutil.TestContract(t, db, user.ID, testutil.WithStatus(model.StatePending))
	testutil.TestContract(t, db, user.ID, testutil.WithStatus(model.StateCompleted))
	testutil.TestContract(t, db, user.ID, testutil.WithStatus(model.StateFailed))

	counts, err := repo.CountByStatus()
	require.NoError(t, err)

	assert.Equal(t, int64(2), counts[model.StatePending])
	assert.Equal(t, int64(1), counts[model.StateCompleted])
	assert.Equal(t, int64(1), counts[model.StateFailed])
	assert.Zero(t, counts[model.StateAnalyzing])
}

func TestContractRepository_CountApproved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewContractRepository(db)
	user := testutil.TestUser(t, db)

	approved := testutil.TestContract(t, db, user.ID, testutil.WithStatus(model.StateCompleted))
	approved.EvaluationResult.Result = &model.EvaluationResult{Approved: true, Reasoning: "ok"}
	require.NoError(t, repo.Update(approved))

	rejected := testutil.TestContract(t, db, user.ID, testutil.WithStatus(model.StateCompleted))
	rejected.EvaluationResult.Result = &model.EvaluationResult{Approved: false, Reasoning: "risky"}
	require.NoError(t, repo.Update(rejected))

	// Pending contract without evaluation should not count either way
	testutil.TestContract(t, db, user.ID)

	approvedCount, rejectedCount, err := repo.CountApproved()
	require.NoError(t, err)
	assert.Equal(t, int64(1), approvedCount)
	assert.Equal(t, int64(1), rejectedCount)
}

func TestContractRepository_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewContractRepository(db)
	user := testutil.TestUser(t, db)
	contract := testutil.TestContract(t, db, user.ID)

	err := repo.Delete(contract.ID)
	require.NoError(t, err)

	_, err = repo.GetByID(contract.ID)
	assert.Error(t, err)
}

func TestContractRepository_UpdateFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewContractRepository(db)
	user := testutil.TestUser(t, db)
	contract := testutil.TestContract(t, db, user.ID)

	runs := model.PipelineRunList{
		{RunID: "run-9", State: model.StateProcessing, Timestamp: time.Now().UTC()},
	}
	err := repo.UpdateFields(contract.ID, map[string]interface{}{
		"status":        model.StateProcessing,
		"pipeline_runs": runs,
	})
	require.NoError(t, err)

	found, err := repo.GetByID(contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateProcessing, found.Status)
	require.Len(t, found.PipelineRuns, 1)
	assert.Equal(t, "run-9", found.PipelineRuns[0].RunID)
}
