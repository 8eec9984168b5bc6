package storage

import (
	"context"
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAzureStore(t *testing.T) *AzureStore {
	t.Helper()
	store, err := NewAzureStore(AzureOptions{
		Account:   "uploadsacct",
		Key:       base64.StdEncoding.EncodeToString([]byte("test-shared-key")),
		Container: "uploads",
	})
	require.NoError(t, err)
	return store
}

func TestNewAzureStoreRequiresSettings(t *testing.T) {
	_, err := NewAzureStore(AzureOptions{Account: "acct"})
	assert.Error(t, err)
}

func TestAzurePublicURL(t *testing.T) {
	store := testAzureStore(t)
	assert.Equal(t,
		"https://uploadsacct.blob.core.windows.net/uploads/teamA/u123/a.pdf",
		store.PublicURL("teamA/u123/a.pdf"))
}

// SAS signing is local; the write URL must address the same blob as the
// public URL.
func TestAzurePresignPutRoundTrip(t *testing.T) {
	store := testAzureStore(t)
	key := "teamA/u123/report_20240301_100000.pdf"

	presigned, err := store.PresignPut(context.Background(), key, 45*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, store.PublicURL(key), presigned.PublicURL)
	assert.Equal(t, 45*time.Minute, presigned.ExpiresIn)

	u, err := url.Parse(presigned.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+key, u.Path)
	assert.NotEmpty(t, u.Query().Get("sig"))
	assert.Contains(t, u.Query().Get("sp"), "w")
}
