package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/testutil"
)

func TestContractService_InternalChangeState(t *testing.T) {
	env, cleanup := setupContractService(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)

	t.Run("change state without run id", func(t *testing.T) {
		contract := testutil.TestContract(t, env.db, user.ID)

		err := env.svc.InternalChangeState(contract.ID, model.StateAnalyzing, "")
		require.NoError(t, err)

		found, err := env.svc.InternalGet(contract.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StateAnalyzing, found.Status)
		assert.Empty(t, found.PipelineRuns)
	})

	t.Run("change state with run id appends run entry", func(t *testing.T) {
		contract := testutil.TestContract(t, env.db, user.ID)

		require.NoError(t, env.svc.InternalChangeState(contract.ID, model.StateProcessing, "run-a"))
		require.NoError(t, env.svc.InternalChangeState(contract.ID, model.StateCompleted, "run-a"))

		found, err := env.svc.InternalGet(contract.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StateCompleted, found.Status)
		require.Len(t, found.PipelineRuns, 2)
		assert.Equal(t, model.StateProcessing, found.PipelineRuns[0].State)
		assert.Equal(t, model.StateCompleted, found.PipelineRuns[1].State)
	})

	t.Run("invalid state rejected", func(t *testing.T) {
		contract := testutil.TestContract(t, env.db, user.ID)

		err := env.svc.InternalChangeState(contract.ID, "exploded", "")
		assert.ErrorIs(t, err, ErrInvalidState)

		found, err := env.svc.InternalGet(contract.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatePending, found.Status)
	})

	t.Run("any enum state accepted regardless of current state", func(t *testing.T) {
		contract := testutil.TestContract(t, env.db, user.ID, testutil.WithStatus(model.StateCompleted))

		// No transition matrix: completed -> processing is allowed
		err := env.svc.InternalChangeState(contract.ID, model.StateProcessing, "")
		assert.NoError(t, err)
	})

	t.Run("missing contract", func(t *testing.T) {
		err := env.svc.InternalChangeState(99999, model.StateProcessing, "")
		assert.ErrorIs(t, err, ErrContractNotFound)
	})
}

func TestContractService_InternalIsLatestRun(t *testing.T) {
	env, cleanup := setupContractService(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID,
		testutil.WithRun("run-1", model.StateProcessing),
		testutil.WithRun("run-2", model.StateProcessing),
	)

	latest, err := env.svc.InternalIsLatestRun(contract.ID, "run-2")
	require.NoError(t, err)
	assert.True(t, latest)

	latest, err = env.svc.InternalIsLatestRun(contract.ID, "run-1")
	require.NoError(t, err)
	assert.False(t, latest)

	// Unknown run id is simply not latest
	latest, err = env.svc.InternalIsLatestRun(contract.ID, "run-x")
	require.NoError(t, err)
	assert.False(t, latest)

	t.Run("no runs at all", func(t *testing.T) {
		fresh := testutil.TestContract(t, env.db, user.ID)
		latest, err := env.svc.InternalIsLatestRun(fresh.ID, "run-1")
		require.NoError(t, err)
		assert.False(t, latest)
	})
}

func TestContractService_InternalSetResults(t *testing.T) {
	env, cleanup := setupContractService(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)

	analysis := &model.AnalysisResult{
		Clauses: []model.ExtractedClause{
			{Type: model.ClauseLiability, Content: "Liability capped at fees paid.", Confidence: 0.88},
		},
		ModelUsed: "gpt-4o",
	}
	evaluation := &model.EvaluationResult{
		Approved:  true,
		Reasoning: "Acceptable risk profile.",
		RiskScore: 0.3,
	}

	t.Run("evaluation requires analysis first", func(t *testing.T) {
		contract := testutil.TestContract(t, env.db, user.ID)

		err := env.svc.InternalSetEvaluationResult(contract.ID, evaluation)
		assert.ErrorIs(t, err, ErrAnalysisRequired)

		found, err := env.svc.InternalGet(contract.ID)
		require.NoError(t, err)
		assert.Nil(t, found.EvaluationResult.Result)
	})

	t.Run("analysis then evaluation", func(t *testing.T) {
		contract := testutil.TestContract(t, env.db, user.ID)

		require.NoError(t, env.svc.InternalSetAnalysisResult(contract.ID, analysis))
		require.NoError(t, env.svc.InternalSetEvaluationResult(contract.ID, evaluation))

		found, err := env.svc.InternalGet(contract.ID)
		require.NoError(t, err)
		require.NotNil(t, found.AnalysisResult.Result)
		assert.Equal(t, model.ClauseLiability, found.AnalysisResult.Result.Clauses[0].Type)
		require.NotNil(t, found.EvaluationResult.Result)
		assert.True(t, found.EvaluationResult.Result.Approved)
	})
}

func TestContractService_InternalMarkFailed(t *testing.T) {
	env, cleanup := setupContractService(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID, testutil.WithStatus(model.StateAnalyzing))

	err := env.svc.InternalMarkFailed(contract.ID, "model timeout")
	require.NoError(t, err)

	found, err := env.svc.InternalGet(contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateFailed, found.Status)
	assert.Equal(t, "model timeout", found.ErrorMessage)

	// Idempotent: calling again with the same message is a no-op
	err = env.svc.InternalMarkFailed(contract.ID, "model timeout")
	require.NoError(t, err)

	// A later, different failure message overwrites
	err = env.svc.InternalMarkFailed(contract.ID, "storage gone")
	require.NoError(t, err)

	found, err = env.svc.InternalGet(contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateFailed, found.Status)
	assert.Equal(t, "storage gone", found.ErrorMessage)
}

func TestContractService_InternalStatus(t *testing.T) {
	env, cleanup := setupContractService(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	contract := testutil.TestContract(t, env.db, user.ID, testutil.WithRun("run-7", model.StateProcessing))

	require.NoError(t, env.svc.InternalSetAnalysisResult(contract.ID, &model.AnalysisResult{ModelUsed: "gpt-4o"}))

	status, err := env.svc.InternalStatus(contract.ID)
	require.NoError(t, err)
	assert.Equal(t, "run-7", status.LatestRunID)
	assert.True(t, status.HasAnalysis)
	assert.False(t, status.HasEvaluation)
}
