package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	name  string
	err   error
	calls int
	keys  []string
}

func (f *fakeTarget) Name() string { return f.name }

func (f *fakeTarget) Store(_ context.Context, key string, _ []byte) error {
	f.calls++
	f.keys = append(f.keys, key)
	return f.err
}

func TestSetStoreFansOutToEveryTarget(t *testing.T) {
	a := &fakeTarget{name: "a"}
	b := &fakeTarget{name: "b"}
	set := Set{a, b}

	err := set.Store(context.Background(), zerolog.Nop(), "teamA/u123/a.pdf", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, []string{"teamA/u123/a.pdf"}, a.keys)
}

func TestSetStoreAttemptsAllTargetsOnFailure(t *testing.T) {
	failing := &fakeTarget{name: "a", err: errors.New("dial refused")}
	healthy := &fakeTarget{name: "b"}
	set := Set{failing, healthy}

	err := set.Store(context.Background(), zerolog.Nop(), "k", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Equal(t, 1, healthy.calls, "a failing target must not stop the fan-out")
}

func TestLoadFromEnvEmpty(t *testing.T) {
	t.Setenv("MIRRORS", "")
	assert.Nil(t, LoadFromEnv(zerolog.Nop()))
}

func TestLoadFromEnvSkipsMisconfiguredTargets(t *testing.T) {
	// sftp declared but unconfigured: skipped, not fatal.
	t.Setenv("MIRRORS", "sftp,unknown")
	t.Setenv("SFTP_HOST", "")
	t.Setenv("SFTP_USER", "")
	assert.Empty(t, LoadFromEnv(zerolog.Nop()))
}

func TestSFTPRemotePath(t *testing.T) {
	target := &sftpTarget{baseDir: "/archive/"}
	assert.Equal(t, "/archive/teamA/u123/a.pdf", target.remotePath("teamA/u123/a.pdf"))

	target = &sftpTarget{}
	assert.Equal(t, "teamA/u123/a.pdf", target.remotePath("teamA/u123/a.pdf"))
}

func TestFTPSRemotePath(t *testing.T) {
	target := &ftpsTarget{baseDir: "archive"}
	assert.Equal(t, "archive/teamA/u123/a.pdf", target.remotePath("teamA/u123/a.pdf"))

	target = &ftpsTarget{}
	assert.Equal(t, "teamA/u123/a.pdf", target.remotePath("teamA/u123/a.pdf"))
}
