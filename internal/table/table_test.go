package table

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("counts rows and columns", func(t *testing.T) {
		data := []byte("author,comment,likes\nana,great video,3\nbo,\"so bad, honestly\",0\n")
		tbl, err := Parse(data)
		require.NoError(t, err)

		assert.Equal(t, []string{"author", "comment", "likes"}, tbl.Header)
		assert.Equal(t, 2, tbl.NumRows())
		assert.Equal(t, 3, tbl.NumColumns())
		assert.Equal(t, "so bad, honestly", tbl.Rows[1][1])
		assert.Equal(t, int64(len(data)), tbl.Size)
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		tbl, err := Parse([]byte("\xEF\xBB\xBFtext\nhello\n"))
		require.NoError(t, err)
		assert.Equal(t, "text", tbl.Header[0])
	})

	t.Run("pads short rows", func(t *testing.T) {
		tbl, err := Parse([]byte("a,b,c\n1\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "", ""}, tbl.Rows[0])
	})

	t.Run("skips blank lines", func(t *testing.T) {
		tbl, err := Parse([]byte("a,b\n1,2\n\n3,4\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, tbl.NumRows())
	})

	t.Run("keeps delimiter-only rows", func(t *testing.T) {
		tbl, err := Parse([]byte("a,b,c\n1,2,3\n,,\n4,5,6\n"))
		require.NoError(t, err)
		assert.Equal(t, 3, tbl.NumRows())
		assert.Equal(t, []string{"", "", ""}, tbl.Rows[1])
		assert.Equal(t, 3, tbl.Preview().Rows)
	})

	t.Run("header only", func(t *testing.T) {
		tbl, err := Parse([]byte("a,b\n"))
		require.NoError(t, err)
		assert.Equal(t, 0, tbl.NumRows())
		assert.Equal(t, 2, tbl.NumColumns())
	})

	t.Run("rejects long rows", func(t *testing.T) {
		_, err := Parse([]byte("a,b\n1,2\n1,2,3\n"))
		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, 3, perr.Line)
		assert.Contains(t, perr.Error(), "expected 2 fields, saw 3")
	})

	t.Run("rejects empty file", func(t *testing.T) {
		_, err := Parse([]byte("  \n"))
		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "no columns to parse from file", perr.Error())
	})
}

func TestPreview(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,comment\n")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "%d,comment %d\n", i, i)
	}
	data := []byte(b.String())

	tbl, err := Parse(data)
	require.NoError(t, err)

	p := tbl.Preview()
	assert.Equal(t, 25, p.Rows)
	assert.Equal(t, 2, p.Columns)
	assert.Len(t, p.Head, 10)
	assert.Equal(t, "0", p.Head[0][0])
	assert.Equal(t, SizeKB(int64(len(data))), p.SizeKB)
}

func TestSizeKB(t *testing.T) {
	tests := []struct {
		size int64
		want float64
	}{
		{0, 0},
		{1024, 1},
		{1536, 1.5},
		{1000, 0.98},
		{123456, 120.56},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeKB(tt.size), "size %d", tt.size)
	}
}
