// manager_test.go - Tests for the upload store
package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Save(t *testing.T) {
	t.Run("saves file from reader", func(t *testing.T) {
		store := NewMemoryStore(0)

		content := "comment\nhello\n"
		info, err := store.Save("comments.csv", strings.NewReader(content))
		require.NoError(t, err)

		assert.NotEmpty(t, info.ID)
		assert.Equal(t, "comments.csv", info.Name)
		assert.Equal(t, int64(len(content)), info.Size)
		assert.Equal(t, "uploaded", info.Status)

		data, err := store.Bytes(info.ID)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("rejects empty upload", func(t *testing.T) {
		store := NewMemoryStore(0)
		_, err := store.Save("empty.csv", strings.NewReader(""))
		assert.True(t, errors.Is(err, ErrEmptyFile))
	})

	t.Run("enforces size limit", func(t *testing.T) {
		store := NewMemoryStore(4)
		_, err := store.Save("big.csv", strings.NewReader("12345"))
		assert.Error(t, err)

		info, err := store.Save("ok.csv", strings.NewReader("1234"))
		require.NoError(t, err)
		assert.Equal(t, int64(4), info.Size)
	})
}

func TestMemoryStore_GetAndDelete(t *testing.T) {
	store := NewMemoryStore(0)
	info, err := store.Save("a.csv", strings.NewReader("x\n1\n"))
	require.NoError(t, err)

	got, err := store.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	require.NoError(t, store.Delete(info.ID))
	assert.Equal(t, "released", info.Status)

	_, err = store.Get(info.ID)
	assert.Error(t, err)
	_, err = store.Bytes(info.ID)
	assert.Error(t, err)
	assert.Error(t, store.Delete(info.ID))
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemoryStore(0)
	first, _ := store.Save("first.csv", strings.NewReader("a"))
	time.Sleep(2 * time.Millisecond)
	second, _ := store.Save("second.csv", strings.NewReader("b"))

	list, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = store.List(1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
