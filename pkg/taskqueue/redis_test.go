package taskqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestQueue 基于miniredis创建队列
func setupTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()
	cfg.KeyPrefix = "test:"

	q, err := NewRedisQueue(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q, mr
}

func testPayload() GeneratePayload {
	return GeneratePayload{
		JobID:      "job-1",
		DocumentID: "doc-1",
		Options:    []byte(`{"mode":"optimized"}`),
	}
}

func TestNewRedisQueue_ConnectionError(t *testing.T) {
	_, err := NewRedisQueue(&Config{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)

	_, err = NewQueue("redis", &Config{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)

	_, err = NewQueue("kafka", nil)
	assert.Error(t, err)
}

func TestRedisQueue_Enqueue(t *testing.T) {
	q, mr := setupTestQueue(t)
	ctx := context.Background()

	taskID, err := q.Enqueue(ctx, TaskGenerateScenarios, "doc-1", testPayload())
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)

	task, err := q.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, TaskGenerateScenarios, task.Type)
	assert.Equal(t, "doc-1", task.DocumentID)
	assert.Equal(t, StatusPending, task.Status)

	var payload GeneratePayload
	require.NoError(t, UnmarshalPayload(task.Payload, &payload))
	assert.Equal(t, "job-1", payload.JobID)
	assert.JSONEq(t, `{"mode":"optimized"}`, string(payload.Options))

	assert.True(t, mr.Exists("test:task:"+taskID))
	ttl := mr.TTL("test:task:" + taskID)
	assert.Equal(t, 7*24*time.Hour, ttl)
}

func TestRedisQueue_GetTaskNotFound(t *testing.T) {
	q, _ := setupTestQueue(t)

	_, err := q.GetTask(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRedisQueue_GetTasksByDocument(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	id1, err := q.Enqueue(ctx, TaskGenerateScenarios, "doc-1", testPayload())
	require.NoError(t, err)
	id2, err := q.Enqueue(ctx, TaskGenerateScenarios, "doc-1", testPayload())
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, TaskGenerateScenarios, "doc-2", testPayload())
	require.NoError(t, err)

	tasks, err := q.GetTasksByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	ids := []string{tasks[0].ID, tasks[1].ID}
	assert.ElementsMatch(t, []string{id1, id2}, ids)

	tasks, err = q.GetTasksByDocument(ctx, "doc-none")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestRedisQueue_UpdateTaskStatus(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	taskID, err := q.Enqueue(ctx, TaskGenerateScenarios, "doc-1", testPayload())
	require.NoError(t, err)

	require.NoError(t, q.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, ""))
	task, err := q.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, task.Status)
	assert.NotNil(t, task.StartedAt)
	assert.Nil(t, task.CompletedAt)

	result := GenerateResult{JobID: "job-1", Requirements: 2, Scenarios: 5}
	require.NoError(t, q.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, ""))
	task, err = q.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)

	var got GenerateResult
	require.NoError(t, UnmarshalPayload(task.Result, &got))
	assert.Equal(t, result, got)

	assert.ErrorIs(t, q.UpdateTaskStatus(ctx, "missing", StatusFailed, nil, "x"), ErrTaskNotFound)
}

func TestRedisQueue_DeleteTask(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	taskID, err := q.Enqueue(ctx, TaskGenerateScenarios, "doc-1", testPayload())
	require.NoError(t, err)

	require.NoError(t, q.DeleteTask(ctx, taskID))

	_, err = q.GetTask(ctx, taskID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	tasks, err := q.GetTasksByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	assert.ErrorIs(t, q.DeleteTask(ctx, taskID), ErrTaskNotFound)
}

func TestRedisQueue_WaitForTask(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	taskID, err := q.Enqueue(ctx, TaskGenerateScenarios, "doc-1", testPayload())
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = q.UpdateTaskStatus(ctx, taskID, StatusCompleted, nil, "")
		_ = q.NotifyTaskUpdate(ctx, taskID)
	}()

	task, err := q.WaitForTask(ctx, taskID, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
}

func TestRedisQueue_WaitForTaskTimeout(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	taskID, err := q.Enqueue(ctx, TaskGenerateScenarios, "doc-1", testPayload())
	require.NoError(t, err)

	_, err = q.WaitForTask(ctx, taskID, 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrTaskTimeout)
}

func TestRedisWorker_Handle(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()
	w := NewRedisWorker(q, nil)

	taskID, err := q.Enqueue(ctx, TaskGenerateScenarios, "doc-1", testPayload())
	require.NoError(t, err)

	var seen *Task
	handler := HandlerFunc(func(ctx context.Context, task *Task) (interface{}, error) {
		seen = task
		return GenerateResult{JobID: "job-1", Scenarios: 3}, nil
	})

	err = w.handle(handler)(ctx, asynq.NewTask(string(TaskGenerateScenarios), []byte(taskID)))
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, taskID, seen.ID)

	task, err := q.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.JSONEq(t, `{"job_id":"job-1","feature_file_id":"","script_file_id":"","report_file_id":"","requirements":0,"scenarios":3}`, string(task.Result))
}

func TestRedisWorker_HandleFailure(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()
	w := NewRedisWorker(q, nil)

	taskID, err := q.Enqueue(ctx, TaskGenerateScenarios, "doc-1", testPayload())
	require.NoError(t, err)

	boom := errors.New("boom")
	handler := HandlerFunc(func(ctx context.Context, task *Task) (interface{}, error) {
		return nil, boom
	})

	err = w.handle(handler)(ctx, asynq.NewTask(string(TaskGenerateScenarios), []byte(taskID)))
	assert.ErrorIs(t, err, boom)

	task, err := q.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, "boom", task.Error)
}

func TestRedisWorker_HandleMissingTask(t *testing.T) {
	q, _ := setupTestQueue(t)
	w := NewRedisWorker(q, nil)

	handler := HandlerFunc(func(ctx context.Context, task *Task) (interface{}, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	})

	err := w.handle(handler)(context.Background(), asynq.NewTask(string(TaskGenerateScenarios), []byte("missing")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPayloadHelpers(t *testing.T) {
	raw, err := MarshalPayload(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))

	var p GeneratePayload
	assert.ErrorIs(t, UnmarshalPayload(nil, &p), ErrInvalidPayload)
	assert.ErrorIs(t, UnmarshalPayload([]byte("{"), &p), ErrInvalidPayload)
	assert.True(t, StatusFailed.IsFinal())
	assert.False(t, StatusProcessing.IsFinal())
}
