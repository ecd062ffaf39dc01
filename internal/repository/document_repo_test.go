package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/fyerfyer/gherkin-gen/internal/database"
	"github.com/fyerfyer/gherkin-gen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// 每个测试使用独立的内存数据库
	dbName := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err, "Failed to open in-memory database")
	require.NoError(t, database.AutoMigrate(db), "Failed to run migrations")
	return db
}

func newTestDocument(id string) *models.Document {
	return &models.Document{
		ID:          id,
		FileName:    id + ".docx",
		FileType:    "docx",
		StoragePath: "ab/" + id + ".docx",
		FileSize:    2048,
	}
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	repo := NewDocumentRepositoryWithDB(setupTestDB(t))

	doc := newTestDocument("doc-1")
	require.NoError(t, repo.Create(doc))
	assert.Equal(t, models.DocStatusUploaded, doc.Status)
	assert.False(t, doc.UploadedAt.IsZero())

	saved, err := repo.GetByID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1.docx", saved.FileName)
	assert.Equal(t, int64(2048), saved.FileSize)

	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)

	assert.Error(t, repo.Create(&models.Document{}))
}

func TestDocumentRepository_List(t *testing.T) {
	repo := NewDocumentRepositoryWithDB(setupTestDB(t))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		doc := newTestDocument(fmt.Sprintf("doc-%d", i))
		doc.UploadedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(doc))
	}

	docs, total, err := repo.List(0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-4", docs[0].ID)
	assert.Equal(t, "doc-3", docs[1].ID)

	docs, _, err = repo.List(4, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-0", docs[0].ID)
}

func TestDocumentRepository_DeleteCascadesJobs(t *testing.T) {
	db := setupTestDB(t)
	docs := NewDocumentRepositoryWithDB(db)
	jobs := NewJobRepositoryWithDB(db)

	require.NoError(t, docs.Create(newTestDocument("doc-1")))
	require.NoError(t, jobs.Create(&models.GenerationJob{ID: "job-1", DocumentID: "doc-1"}))

	require.NoError(t, docs.Delete("doc-1"))

	_, err := docs.GetByID("doc-1")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
	_, err = jobs.GetByID("job-1")
	assert.ErrorIs(t, err, models.ErrJobNotFound)

	assert.ErrorIs(t, docs.Delete("doc-1"), models.ErrDocumentNotFound)
}
