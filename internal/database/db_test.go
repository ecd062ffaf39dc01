package database

import (
	"path/filepath"
	"testing"

	"github.com/fyerfyer/gherkin-gen/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupAndClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "nested", "test.db")

	require.NoError(t, Setup(cfg, logrus.New()))
	defer func() {
		assert.NoError(t, Close())
		DB = nil
	}()

	db := MustDB()
	assert.True(t, db.Migrator().HasTable(&models.Document{}))
	assert.True(t, db.Migrator().HasTable(&models.GenerationJob{}))
}

func TestOpenUnsupportedType(t *testing.T) {
	_, err := Open(&Config{Type: "mysql"}, logrus.New())
	assert.Error(t, err)
}

func TestMustDBPanicsWithoutSetup(t *testing.T) {
	DB = nil
	assert.Panics(t, func() { MustDB() })
}
