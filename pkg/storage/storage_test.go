package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkSignAndVerify(t *testing.T) {
	signer := NewLinkSigner("secret", time.Hour)
	token, expires, err := signer.Sign("students-1.csv")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 2*time.Second)

	name, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "students-1.csv", name)

	_, err = NewLinkSigner("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrLinkInvalid)
	_, err = signer.Verify("garbage")
	assert.ErrorIs(t, err, ErrLinkInvalid)
}

func TestLinkExpires(t *testing.T) {
	signer := NewLinkSigner("secret", time.Minute)
	token, _, err := signer.Sign("courses.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrLinkExpired)
}

func TestLinkRequiresSecret(t *testing.T) {
	_, _, err := NewLinkSigner("", 0).Sign("x.csv")
	assert.Error(t, err)
}

func TestArchivePutPathAndPrune(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewArchive(dir)
	require.NoError(t, err)

	require.NoError(t, archive.Put("old.csv", []byte("a")))
	require.NoError(t, archive.Put("new.csv", []byte("b")))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), past, past))

	path, err := archive.Path("new.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new.csv"), path)

	removed, err := archive.Prune(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, removed)
	_, err = archive.Path("old.csv")
	assert.Error(t, err)
}

func TestArchiveRejectsNestedNames(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.csv", "a/b.csv", ".hidden"} {
		assert.Error(t, archive.Put(name, []byte("x")), name)
	}
}
