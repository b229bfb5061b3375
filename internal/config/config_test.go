package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "borrow.sqlite3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.App.Addr())
	assert.Equal(t, UploadBackendDisk, cfg.Uploads.Backend)
	assert.Equal(t, "uploads", cfg.Uploads.Dir)
	assert.Equal(t, int64(20<<20), cfg.Uploads.MaxBytes())
	assert.False(t, cfg.App.BorrowRequiresAuth)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadS3RequiresCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "borrow.sqlite3")
	t.Setenv("UPLOAD_BACKEND", "S3")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestLoadUnknownBackend(t *testing.T) {
	t.Setenv("DATABASE_URL", "borrow.sqlite3")
	t.Setenv("UPLOAD_BACKEND", "ftp")

	_, err := Load()
	assert.Error(t, err)
}
