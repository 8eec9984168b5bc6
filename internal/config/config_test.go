package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("S3_BUCKET_NAME", "uploads")
	t.Setenv("AUTH_API_BASE_URL", "https://identity.example.com")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "s3", cfg.StorageBackend)
	assert.Equal(t, "ap-southeast-2", cfg.S3Region)
	assert.Equal(t, "remote", cfg.AuthMode)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.Equal(t, time.Hour, cfg.PresignExpiry())
	assert.Equal(t, 24*time.Hour, cfg.LegacyTokenMaxAge())
}

func TestLoadRequiresBucket(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "")
	t.Setenv("AUTH_API_BASE_URL", "https://identity.example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET_NAME")
}

func TestLoadRequiresAuthBaseURL(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "uploads")
	t.Setenv("AUTH_API_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_API_BASE_URL")
}

func TestLoadAzureBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "azure")
	t.Setenv("AUTH_API_BASE_URL", "https://identity.example.com")
	t.Setenv("S3_BUCKET_NAME", "")

	_, err := Load()
	require.Error(t, err, "azure backend without credentials must fail validation")

	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "key")
	t.Setenv("AZURE_BLOB_CONTAINER", "uploads")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "azure", cfg.StorageBackend)
}

func TestLoadLegacyAuthMode(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "uploads")
	t.Setenv("AUTH_MODE", "legacy")
	t.Setenv("AUTH_API_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bus", cfg.LegacyTokenRealm)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_BACKEND", "tape")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tape")
}

func TestAllowedOriginsList(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins())
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{".exe", ".bat"}, SplitList(" .exe , .bat ,"))
}
