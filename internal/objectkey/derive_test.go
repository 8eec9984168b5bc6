package objectkey

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioforge/upload-gateway/internal/identity"
)

func TestDerive(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  Request
		user identity.UserContext
		want string
	}{
		{
			name: "workspace prefixed key",
			req:  Request{OriginalFilename: "report.pdf"},
			user: identity.UserContext{ID: "u123", Workspace: "teamA"},
			want: "teamA/u123/report_20240301_100000.pdf",
		},
		{
			name: "no workspace",
			req:  Request{OriginalFilename: "report.pdf"},
			user: identity.UserContext{ID: "u123"},
			want: "u123/report_20240301_100000.pdf",
		},
		{
			name: "explicit folder outermost",
			req:  Request{OriginalFilename: "report.pdf", Folder: "invoices"},
			user: identity.UserContext{ID: "u123", Workspace: "teamA"},
			want: "invoices/teamA/u123/report_20240301_100000.pdf",
		},
		{
			name: "custom filename replaces stem",
			req:  Request{OriginalFilename: "upload.tmp.pdf", CustomFilename: "march report"},
			user: identity.UserContext{ID: "u123"},
			want: "u123/march report_20240301_100000.pdf",
		},
		{
			name: "custom filename keeps its own extension",
			req:  Request{OriginalFilename: "scan.png", CustomFilename: "receipt.jpg"},
			user: identity.UserContext{ID: "u123"},
			want: "u123/receipt_20240301_100000.jpg",
		},
		{
			name: "nested folder preserved",
			req:  Request{OriginalFilename: "a.txt", Folder: "one/two"},
			user: identity.UserContext{ID: "u1"},
			want: "one/two/u1/a_20240301_100000.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.req, &tt.user, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	req := Request{OriginalFilename: "report.pdf", CustomFilename: "final"}
	user := &identity.UserContext{ID: "u123", Workspace: "teamA"}

	first := Derive(req, user, now)
	second := Derive(req, user, now)
	assert.Equal(t, first, second)
}

func TestDeriveNeverEmitsTraversal(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	user := &identity.UserContext{ID: "u123", Workspace: "teamA"}

	adversarial := []Request{
		{OriginalFilename: "../../etc/passwd"},
		{OriginalFilename: "report.pdf", CustomFilename: "../../secrets"},
		{OriginalFilename: "report.pdf", Folder: "../.."},
		{OriginalFilename: "report.pdf", Folder: "ok/../../../root"},
		{OriginalFilename: "a\\..\\b.txt"},
	}
	for _, req := range adversarial {
		key := Derive(req, user, now)
		for _, segment := range strings.Split(key, "/") {
			require.NotEmpty(t, segment, "key %q has an empty segment", key)
			require.NotEqual(t, "..", segment, "key %q contains a traversal segment", key)
		}
		assert.NotContains(t, key, "\\")
	}
}

func TestDeriveSanitizedCustomFilename(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	user := &identity.UserContext{ID: "u123"}

	key := Derive(Request{OriginalFilename: "report.pdf", CustomFilename: "../../secrets"}, user, now)
	assert.NotContains(t, strings.TrimPrefix(key, "u123/"), "/")
	assert.Contains(t, key, "secrets")
}

func TestDeriveEmptyStemFallsBackToOriginal(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	user := &identity.UserContext{ID: "u123"}

	// Custom name made entirely of disallowed runes collapses; the
	// original stem takes over.
	key := Derive(Request{OriginalFilename: "report.pdf", CustomFilename: "///%%%"}, user, now)
	assert.Equal(t, "u123/report_20240301_100000.pdf", key)
}

func TestDeriveGeneratesStemWhenNothingSurvives(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	user := &identity.UserContext{ID: "u123"}

	key := Derive(Request{OriginalFilename: "%%%"}, user, now)
	parts := strings.Split(key, "/")
	require.Len(t, parts, 2)
	assert.Equal(t, "u123", parts[0])
	assert.True(t, strings.HasSuffix(parts[1], "_20240301_100000"))
	assert.Greater(t, len(parts[1]), len("_20240301_100000"))
}

func TestTimestampSortsChronologically(t *testing.T) {
	earlier := time.Date(2024, 3, 1, 9, 59, 59, 0, time.UTC).Format(TimestampLayout)
	later := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Format(TimestampLayout)
	assert.Less(t, earlier, later)
}
