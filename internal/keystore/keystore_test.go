package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionScope_HeldInMemoryOnly(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.Set([]byte("session-key"), false))

	got, err := s.Get()
	require.NoError(t, err)
	require.Equal(t, []byte("session-key"), got)

	_, err = os.Stat(filepath.Join(dir, keyFileName))
	require.ErrorIs(t, err, os.ErrNotExist, "session key must not touch disk")

	// A fresh store over the same dir simulates a new browsing context.
	s2 := New(dir)
	got, err = s2.Get()
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPersistentScope_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, New(dir).Set([]byte{0x01, 0x02, 0xff}, true))

	got, err := New(dir).Get()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0xff}, got)
}

func TestSet_SessionDiscardsPersistedKey(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.Set([]byte("old"), true))
	require.NoError(t, s.Set([]byte("new"), false))

	got, err := New(dir).Get()
	require.NoError(t, err)
	require.Nil(t, got, "persisted copy must be gone after a session-scoped Set")
}

func TestClear_RemovesBothScopes(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.Set([]byte("k"), true))
	require.NoError(t, s.Clear())

	got, err := s.Get()
	require.NoError(t, err)
	require.Nil(t, got)

	// Clearing an empty store is a no-op.
	require.NoError(t, s.Clear())
}
