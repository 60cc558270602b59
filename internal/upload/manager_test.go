package upload

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), ".csv", nil)
	require.NoError(t, err)
	return m
}

func TestManager_ValidateFileName(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{"lowercase csv", "comments.csv", false},
		{"uppercase csv", "COMMENTS.CSV", false},
		{"json", "comments.json", true},
		{"no extension", "comments", true},
		{"csv in middle", "comments.csv.exe", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateFileName(tt.file)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrExtensionNotAllowed))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseExtensions(t *testing.T) {
	assert.Equal(t, []string{".csv", ".tsv"}, ParseExtensions(" .CSV, tsv ,,"))
	assert.Empty(t, ParseExtensions(""))
}

func TestManager_Open(t *testing.T) {
	m := newTestManager(t)
	data := []byte("comment\nnice\n")

	s, err := m.Open(data)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(s.Path()))
	assert.Equal(t, InputFileName, filepath.Base(s.Path()))
	got, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 1, m.OpenScopes())

	require.NoError(t, s.Close())
	_, err = os.Stat(s.Dir)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, m.OpenScopes())

	// second close is a no-op
	assert.NoError(t, s.Close())
}

func TestManager_ScopesAreIsolated(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Open([]byte("a"))
	require.NoError(t, err)
	b, err := m.Open([]byte("b"))
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Dir, b.Dir)
	require.NoError(t, a.Close())

	got, err := os.ReadFile(b.Path())
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestManager_CloseAll(t *testing.T) {
	m := newTestManager(t)
	var dirs []string
	for i := 0; i < 3; i++ {
		s, err := m.Open([]byte("x"))
		require.NoError(t, err)
		dirs = append(dirs, s.Dir)
	}

	m.CloseAll()
	assert.Equal(t, 0, m.OpenScopes())
	for _, d := range dirs {
		_, err := os.Stat(d)
		assert.True(t, os.IsNotExist(err))
	}
}
