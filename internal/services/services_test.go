package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fyerfyer/gherkin-gen/internal/cache"
	"github.com/fyerfyer/gherkin-gen/internal/database"
	"github.com/fyerfyer/gherkin-gen/internal/models"
	"github.com/fyerfyer/gherkin-gen/internal/render"
	"github.com/fyerfyer/gherkin-gen/internal/repository"
	"github.com/fyerfyer/gherkin-gen/internal/scenario"
	"github.com/fyerfyer/gherkin-gen/pkg/storage"
	"github.com/fyerfyer/gherkin-gen/pkg/taskqueue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testRequirements = `[REQ-1] Login
Requirement
As a registered customer I want to log in.
Rationale
Security.
FIT Criteria
- Validation: email required
- Validation: password required
- Audit: login recorded
[REQ-2] Logout
Requirement
User logs out.
FIT Criteria
Session cleared
`

type testEnv struct {
	docs    *DocumentService
	gen     *GenerationService
	uploads *storage.LocalStorage
	outputs *storage.LocalStorage
	cache   cache.Cache
}

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:services_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func setupTestEnv(t *testing.T, opts ...GenerationOption) *testEnv {
	db := setupTestDB(t)
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	uploads, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)
	outputs, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)
	c, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)

	docs := NewDocumentService(uploads, repository.NewDocumentRepositoryWithDB(db),
		WithDocumentLogger(logger), WithDocumentCache(c))

	opts = append([]GenerationOption{WithLogger(logger), WithCache(c, time.Minute)}, opts...)
	gen := NewGenerationService(docs, repository.NewJobRepositoryWithDB(db), outputs, opts...)

	return &testEnv{docs: docs, gen: gen, uploads: uploads, outputs: outputs, cache: c}
}

// syncQueue 在Enqueue返回之前就执行完任务，相当于worker抢在入队方之前完成
type syncQueue struct {
	gen   *GenerationService
	tasks map[string]*taskqueue.Task
}

func newSyncQueue() *syncQueue {
	return &syncQueue{tasks: make(map[string]*taskqueue.Task)}
}

func (q *syncQueue) Enqueue(ctx context.Context, taskType taskqueue.TaskType, documentID string, payload interface{}) (string, error) {
	raw, err := taskqueue.MarshalPayload(payload)
	if err != nil {
		return "", err
	}
	task := &taskqueue.Task{
		ID:         uuid.New().String(),
		Type:       taskType,
		DocumentID: documentID,
		Status:     taskqueue.StatusPending,
		Payload:    raw,
		CreatedAt:  time.Now(),
	}
	q.tasks[task.ID] = task

	if _, err := q.gen.ProcessTask(ctx, task); err != nil {
		task.Status = taskqueue.StatusFailed
		return "", err
	}
	task.Status = taskqueue.StatusCompleted
	return task.ID, nil
}

func (q *syncQueue) GetTask(ctx context.Context, taskID string) (*taskqueue.Task, error) {
	task, ok := q.tasks[taskID]
	if !ok {
		return nil, taskqueue.ErrTaskNotFound
	}
	return task, nil
}

func (q *syncQueue) GetTasksByDocument(ctx context.Context, documentID string) ([]*taskqueue.Task, error) {
	var tasks []*taskqueue.Task
	for _, task := range q.tasks {
		if task.DocumentID == documentID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (q *syncQueue) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*taskqueue.Task, error) {
	return q.GetTask(ctx, taskID)
}

func (q *syncQueue) DeleteTask(ctx context.Context, taskID string) error {
	if _, ok := q.tasks[taskID]; !ok {
		return taskqueue.ErrTaskNotFound
	}
	delete(q.tasks, taskID)
	return nil
}

func (q *syncQueue) UpdateTaskStatus(ctx context.Context, taskID string, status taskqueue.TaskStatus, result interface{}, errMsg string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	task.Status = status
	return nil
}

func (q *syncQueue) NotifyTaskUpdate(ctx context.Context, taskID string) error { return nil }

func (q *syncQueue) Close() error { return nil }

func (e *testEnv) upload(t *testing.T) *models.Document {
	doc, err := e.docs.Upload(context.Background(), strings.NewReader(testRequirements), "login.txt")
	require.NoError(t, err)
	return doc
}

func readArtifact(t *testing.T, a *Artifact) string {
	defer a.Reader.Close()
	data, err := io.ReadAll(a.Reader)
	require.NoError(t, err)
	return string(data)
}

func TestDocumentService_Upload(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.docs.Upload(ctx, strings.NewReader("x"), "legacy.doc")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = env.docs.Upload(ctx, strings.NewReader("x"), "  ")
	assert.ErrorIs(t, err, ErrEmptyFileName)

	doc := env.upload(t)
	assert.Equal(t, "login.txt", doc.FileName)
	assert.Equal(t, "txt", doc.FileType)
	assert.Equal(t, int64(len(testRequirements)), doc.FileSize)

	_, lines, err := env.docs.Lines(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "[REQ-1] Login", lines[0])
	assert.Equal(t, "Session cleared", lines[len(lines)-1])

	docs, total, err := env.docs.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, doc.ID, docs[0].ID)
}

func TestGenerationService_Analyze(t *testing.T) {
	env := setupTestEnv(t)
	doc := env.upload(t)

	a, err := env.gen.Analyze(context.Background(), doc.ID, render.Options{Mode: "bogus"})
	require.NoError(t, err)

	assert.Equal(t, scenario.ModeOptimized, a.Options.Mode)
	require.Len(t, a.Records, 2)
	assert.Equal(t, "1", a.Records[0].ReqID)
	assert.Contains(t, a.Feature, "Feature: [REQ-1] Login")
	assert.Contains(t, a.Script, "test.describe(")
	assert.Equal(t, render.Totals{TotalRequirements: 2, TotalFitCriteria: 4, TotalScenarios: 4}, a.Summary.Totals)
	assert.NotEmpty(t, a.Rules)
}

func TestGenerationService_AnalyzeUsesCache(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	doc := env.upload(t)
	opts := render.Options{Mode: scenario.ModeAtomized}

	first, err := env.gen.Analyze(ctx, doc.ID, opts)
	require.NoError(t, err)

	// 删除原文件后仍能从缓存返回
	require.NoError(t, env.uploads.Delete(doc.ID))
	second, err := env.gen.Analyze(ctx, doc.ID, opts)
	require.NoError(t, err)
	assert.Equal(t, first.Feature, second.Feature)

	// 不同选项不会命中缓存
	_, err = env.gen.Analyze(ctx, doc.ID, render.Options{Mode: scenario.ModeUltraOptimized})
	assert.Error(t, err)

	// 删除文档会清理缓存
	require.NoError(t, env.docs.Delete(ctx, doc.ID))
	_, err = env.gen.Analyze(ctx, doc.ID, opts)
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}

func TestGenerationService_GenerateSync(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	doc := env.upload(t)

	job, err := env.gen.Generate(ctx, doc.ID, GenerationOptions{Options: render.Options{Mode: scenario.ModeAtomized}}, false)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.NotEmpty(t, job.FeatureFileID)
	assert.NotEmpty(t, job.ScriptFileID)
	assert.NotEmpty(t, job.ReportFileID)

	var summary render.Summary
	require.NoError(t, json.Unmarshal(job.Summary, &summary))
	assert.Equal(t, 4, summary.Totals.TotalScenarios)

	stored, err := env.gen.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	feature, err := env.gen.OpenArtifact(ctx, job.ID, ArtifactFeature)
	require.NoError(t, err)
	assert.Equal(t, "login.feature", feature.FileName)
	assert.Contains(t, readArtifact(t, feature), "Feature: [REQ-2] Logout")

	script, err := env.gen.OpenArtifact(ctx, job.ID, ArtifactScript)
	require.NoError(t, err)
	assert.Equal(t, "login.spec.ts", script.FileName)
	assert.Contains(t, readArtifact(t, script), "@playwright/test")

	report, err := env.gen.OpenArtifact(ctx, job.ID, ArtifactReport)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, strings.HasPrefix(readArtifact(t, report), "%PDF-"))

	_, err = env.gen.OpenArtifact(ctx, job.ID, "zip")
	assert.ErrorIs(t, err, ErrUnknownArtifact)

	jobs, err := env.gen.ListJobs(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestGenerationService_GenerateMissingDocument(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.gen.Generate(context.Background(), "missing", env.gen.Defaults(), false)
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}

func TestGenerationService_GenerateFailureMarksJob(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	doc := env.upload(t)
	require.NoError(t, env.uploads.Delete(doc.ID))

	_, err := env.gen.Generate(ctx, doc.ID, env.gen.Defaults(), false)
	require.Error(t, err)

	jobs, err := env.gen.ListJobs(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobStatusFailed, jobs[0].Status)
	assert.NotEmpty(t, jobs[0].Error)

	_, err = env.gen.OpenArtifact(ctx, jobs[0].ID, ArtifactFeature)
	assert.ErrorIs(t, err, ErrJobNotReady)
}

func TestGenerationService_GenerateAsync(t *testing.T) {
	mr := miniredis.RunT(t)
	qcfg := taskqueue.DefaultConfig()
	qcfg.RedisAddr = mr.Addr()
	queue, err := taskqueue.NewRedisQueue(qcfg)
	require.NoError(t, err)
	defer queue.Close()

	env := setupTestEnv(t, WithTaskQueue(queue))
	ctx := context.Background()
	doc := env.upload(t)
	assert.True(t, env.gen.AsyncEnabled())

	job, err := env.gen.Generate(ctx, doc.ID, env.gen.Defaults(), true)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	require.NotEmpty(t, job.TaskID)

	_, err = env.gen.OpenArtifact(ctx, job.ID, ArtifactReport)
	assert.ErrorIs(t, err, ErrJobNotReady)

	task, err := queue.GetTask(ctx, job.TaskID)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.TaskGenerateScenarios, task.Type)

	result, err := env.gen.ProcessTask(ctx, task)
	require.NoError(t, err)
	res := result.(taskqueue.GenerateResult)
	assert.Equal(t, job.ID, res.JobID)
	assert.Equal(t, 2, res.Requirements)
	assert.Equal(t, 4, res.Scenarios)

	done, err := env.gen.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
}

func TestGenerationService_GenerateAsyncFinishedBeforeEnqueueReturns(t *testing.T) {
	queue := newSyncQueue()
	env := setupTestEnv(t, WithTaskQueue(queue))
	queue.gen = env.gen
	ctx := context.Background()
	doc := env.upload(t)

	job, err := env.gen.Generate(ctx, doc.ID, env.gen.Defaults(), true)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotEmpty(t, job.TaskID)

	stored, err := env.gen.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	assert.Equal(t, job.TaskID, stored.TaskID)
	assert.NotEmpty(t, stored.FeatureFileID)
	assert.NotEmpty(t, stored.ReportFileID)
	assert.NotEmpty(t, stored.Summary)

	feature, err := env.gen.OpenArtifact(ctx, job.ID, ArtifactFeature)
	require.NoError(t, err)
	assert.Contains(t, readArtifact(t, feature), "Feature: [REQ-1] Login")
}

func TestGenerationService_Await(t *testing.T) {
	mr := miniredis.RunT(t)
	qcfg := taskqueue.DefaultConfig()
	qcfg.RedisAddr = mr.Addr()
	queue, err := taskqueue.NewRedisQueue(qcfg)
	require.NoError(t, err)
	defer queue.Close()

	env := setupTestEnv(t, WithTaskQueue(queue))
	ctx := context.Background()
	doc := env.upload(t)

	job, err := env.gen.Generate(ctx, doc.ID, env.gen.Defaults(), true)
	require.NoError(t, err)

	// 没有worker时等待超时，返回当前状态
	pending, err := env.gen.Await(ctx, job.ID, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, pending.Status)

	task, err := queue.GetTask(ctx, job.TaskID)
	require.NoError(t, err)
	_, err = env.gen.ProcessTask(ctx, task)
	require.NoError(t, err)
	require.NoError(t, queue.UpdateTaskStatus(ctx, job.TaskID, taskqueue.StatusCompleted, nil, ""))

	done, err := env.gen.Await(ctx, job.ID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
}

func TestDocumentService_DeleteRemovesGenerationOutputs(t *testing.T) {
	queue := newSyncQueue()
	env := setupTestEnv(t, WithTaskQueue(queue))
	queue.gen = env.gen
	ctx := context.Background()
	doc := env.upload(t)
	other := env.upload(t)

	asyncJob, err := env.gen.Generate(ctx, doc.ID, env.gen.Defaults(), true)
	require.NoError(t, err)
	syncJob, err := env.gen.Generate(ctx, doc.ID, env.gen.Defaults(), false)
	require.NoError(t, err)
	keptJob, err := env.gen.Generate(ctx, other.ID, env.gen.Defaults(), true)
	require.NoError(t, err)

	var fileIDs []string
	for _, job := range []*models.GenerationJob{asyncJob, syncJob} {
		fileIDs = append(fileIDs, job.FeatureFileID, job.ScriptFileID, job.ReportFileID)
	}

	require.NoError(t, env.docs.Delete(ctx, doc.ID))

	for _, id := range fileIDs {
		exists, err := env.outputs.Exists(id)
		require.NoError(t, err)
		assert.False(t, exists, "artifact %s should be deleted", id)
	}
	tasks, err := queue.GetTasksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	jobs, err := env.gen.ListJobs(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	// 其他文档的产物和任务不受影响
	exists, err := env.outputs.Exists(keptJob.FeatureFileID)
	require.NoError(t, err)
	assert.True(t, exists)
	_, err = queue.GetTask(ctx, keptJob.TaskID)
	assert.NoError(t, err)

	assert.ErrorIs(t, env.docs.Delete(ctx, doc.ID), models.ErrDocumentNotFound)
}

func TestGenerationService_ProcessTaskLogsBadSummary(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	env := setupTestEnv(t, WithLogger(logger))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, env.gen.jobs.Create(&models.GenerationJob{
		ID:          "job-bad-summary",
		DocumentID:  "doc-1",
		Status:      models.JobStatusCompleted,
		Summary:     datatypes.JSON(`not json`),
		CompletedAt: &now,
	}))

	payload, err := taskqueue.MarshalPayload(taskqueue.GeneratePayload{JobID: "job-bad-summary", DocumentID: "doc-1"})
	require.NoError(t, err)

	result, err := env.gen.ProcessTask(ctx, &taskqueue.Task{ID: "task-1", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, 0, result.(taskqueue.GenerateResult).Requirements)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Failed to decode job summary" {
			warned = true
			assert.Equal(t, "job-bad-summary", entry.Data["job_id"])
		}
	}
	assert.True(t, warned)
}

func TestGenerationService_AsyncWithoutQueueRunsSync(t *testing.T) {
	env := setupTestEnv(t)
	doc := env.upload(t)

	job, err := env.gen.Generate(context.Background(), doc.ID, env.gen.Defaults(), true)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Empty(t, job.TaskID)
}

func TestGenerationService_Traceability(t *testing.T) {
	env := setupTestEnv(t)
	doc := env.upload(t)

	graph, err := env.gen.Traceability(context.Background(), doc.ID, scenario.ModeOptimized, 1)
	require.NoError(t, err)

	ids := make([]string, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Contains(t, ids, "REQ:1")
	assert.Contains(t, ids, "SC:1:3")
	assert.NotContains(t, ids, "REQ:2")
}

func TestWithDefaultsNormalizesMode(t *testing.T) {
	env := setupTestEnv(t, WithDefaults(GenerationOptions{Options: render.Options{Mode: "nope"}, TopN: 5}))

	assert.Equal(t, scenario.ModeOptimized, env.gen.Defaults().Mode)
	assert.Equal(t, 5, env.gen.Defaults().TopN)
}

func TestArtifactNames(t *testing.T) {
	assert.Equal(t, "req.feature", artifactName("req", ArtifactFeature))
	assert.Equal(t, "req.spec.ts", artifactName("req", ArtifactScript))
	assert.Equal(t, "req_summary.pdf", artifactName("req", ArtifactReport))

	a := analysisKey("doc", render.Options{Mode: scenario.ModeAtomized})
	b := analysisKey("doc", render.Options{Mode: scenario.ModeOptimized})
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, analysisKeyPrefix("doc")))
}
