package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testMessage(taskID string, contractID int64) *PipelineMessage {
	return &PipelineMessage{
		TaskID:     taskID,
		ContractID: contractID,
		RunID:      "run-" + taskID,
		UserID:     10,
		Steps: []StepSignature{
			{Name: "change_state", State: "processing", OnFailure: "report_failure"},
			{Name: "parse_document", OnFailure: "report_failure"},
			{Name: "analyze_clauses", State: "analyzing", OnFailure: "report_failure"},
			{Name: "evaluate_health", State: "evaluating", OnFailure: "report_failure"},
			{Name: "change_state", State: "completed", OnFailure: "report_failure"},
		},
		Context: TaskContext{
			RunID:           "run-" + taskID,
			ContractID:      contractID,
			StorageRootPath: "/tmp/storage",
			APIAuthToken:    "token-" + taskID,
			APIBaseURL:      "http://localhost:8080",
		},
		MaxRetries:        3,
		RetryDelaySeconds: 1,
	}
}

func TestNewQueue(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_queue")

	assert.NotNil(t, q)
	assert.Equal(t, "test_queue", q.queueName)
	assert.Equal(t, client, q.client)
}

func TestQueue_Push(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_queue")
	ctx := context.Background()

	t.Run("push single message", func(t *testing.T) {
		err := q.Push(ctx, testMessage("t1", 100))
		require.NoError(t, err)

		length, err := q.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), length)
	})

	t.Run("push multiple messages", func(t *testing.T) {
		client.Del(ctx, "test_queue2")

		q2 := NewQueue(client, "test_queue2")

		for i := 0; i < 5; i++ {
			err := q2.Push(ctx, testMessage("multi", int64(i)))
			require.NoError(t, err)
		}

		length, err := q2.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), length)
	})
}

func TestQueue_Pop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("pop from queue with messages", func(t *testing.T) {
		q := NewQueue(client, "test_pop_queue")

		err := q.Push(ctx, testMessage("t42", 200))
		require.NoError(t, err)

		result, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, "t42", result.TaskID)
		assert.Equal(t, int64(200), result.ContractID)
		assert.Equal(t, "run-t42", result.RunID)
		assert.Equal(t, int64(10), result.UserID)
		assert.Len(t, result.Steps, 5)
		assert.Equal(t, "change_state", result.Steps[0].Name)
		assert.Equal(t, "processing", result.Steps[0].State)
		assert.Equal(t, "report_failure", result.Steps[0].OnFailure)
		assert.Equal(t, "completed", result.Steps[4].State)
		assert.Equal(t, "token-t42", result.Context.APIAuthToken)
		assert.Equal(t, "http://localhost:8080", result.Context.APIBaseURL)
		assert.Equal(t, 3, result.MaxRetries)
	})

	t.Run("pop FIFO order", func(t *testing.T) {
		q := NewQueue(client, "test_fifo_queue")

		// Push in order 1, 2, 3
		for i := 1; i <= 3; i++ {
			err := q.Push(ctx, testMessage("fifo", int64(i)))
			require.NoError(t, err)
		}

		// Should pop in order 1, 2, 3 (FIFO - first in, first out)
		for i := 1; i <= 3; i++ {
			result, err := q.Pop(ctx, time.Second)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, int64(i), result.ContractID)
		}
	})

	t.Run("pop from empty queue times out", func(t *testing.T) {
		q := NewQueue(client, "test_empty_queue")

		// Pop with very short timeout
		result, err := q.Pop(ctx, 10*time.Millisecond)

		// miniredis doesn't support BRPop timeout properly, so check for nil or error
		if err == nil {
			assert.Nil(t, result)
		}
	})
}

func TestQueue_Length(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("length of empty queue", func(t *testing.T) {
		q := NewQueue(client, "test_length_empty")

		length, err := q.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), length)
	})

	t.Run("length after push and pop", func(t *testing.T) {
		q := NewQueue(client, "test_length_ops")

		for i := 0; i < 3; i++ {
			err := q.Push(ctx, testMessage("len", int64(i)))
			require.NoError(t, err)
		}

		length, err := q.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), length)

		_, err = q.Pop(ctx, time.Second)
		require.NoError(t, err)

		length, err = q.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), length)
	})
}

func TestQueue_RoundTrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	q := NewQueue(client, "test_roundtrip")

	original := testMessage("rt", 999)
	original.Context.StorageRootPath = "/var/data/contracts"
	original.RetryDelaySeconds = 5

	err := q.Push(ctx, original)
	require.NoError(t, err)

	result, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, original.TaskID, result.TaskID)
	assert.Equal(t, original.ContractID, result.ContractID)
	assert.Equal(t, original.RunID, result.RunID)
	assert.Equal(t, original.Steps, result.Steps)
	assert.Equal(t, original.Context, result.Context)
	assert.Equal(t, original.MaxRetries, result.MaxRetries)
	assert.Equal(t, original.RetryDelaySeconds, result.RetryDelaySeconds)
}

func TestQueue_MultipleQueues(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	q1 := NewQueue(client, "queue_1")
	q2 := NewQueue(client, "queue_2")

	err := q1.Push(ctx, testMessage("a", 1))
	require.NoError(t, err)

	err = q2.Push(ctx, testMessage("b", 2))
	require.NoError(t, err)

	// Each queue should have 1 message
	len1, _ := q1.Length(ctx)
	len2, _ := q2.Length(ctx)
	assert.Equal(t, int64(1), len1)
	assert.Equal(t, int64(1), len2)

	result1, _ := q1.Pop(ctx, time.Second)
	result2, _ := q2.Pop(ctx, time.Second)

	assert.Equal(t, int64(1), result1.ContractID)
	assert.Equal(t, int64(2), result2.ContractID)
}
