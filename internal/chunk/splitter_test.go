package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	t.Run("zero size rejected", func(t *testing.T) {
		_, err := New(0, 0)
		assert.Error(t, err)
	})

	t.Run("overlap equal to size rejected", func(t *testing.T) {
		_, err := New(100, 100)
		assert.Error(t, err)
	})

	t.Run("negative overlap rejected", func(t *testing.T) {
		_, err := New(100, -1)
		assert.Error(t, err)
	})
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s, err := New(1000, 200)
	require.NoError(t, err)

	chunks := s.Split("Title: hello\nBody: world\nComments: ")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Title: hello\nBody: world\nComments:", chunks[0])
}

func TestSplit_EmptyInput(t *testing.T) {
	s, err := New(1000, 200)
	require.NoError(t, err)

	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplit_OverlappingWindows(t *testing.T) {
	s, err := New(10, 4)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := s.Split(text)

	// step = 6: windows start at 0, 6, 12, 18, 24
	require.Equal(t, 5, len(chunks))
	assert.Equal(t, "abcdefghij", chunks[0])
	assert.Equal(t, "ghijklmnop", chunks[1])
	assert.Equal(t, "yz", chunks[4])

	// Consecutive chunks share the overlap region.
	assert.Equal(t, chunks[0][6:], chunks[1][:4])
}

func TestSplit_CoversAllText(t *testing.T) {
	s, err := New(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 50)
	}
	// Last chunk must end where the text ends.
	assert.True(t, strings.HasSuffix(strings.TrimSpace(text), chunks[len(chunks)-1]))
}

func TestSplit_MultibyteRunesNotSplit(t *testing.T) {
	s, err := New(4, 1)
	require.NoError(t, err)

	chunks := s.Split("日本語のテキストです")
	for _, c := range chunks {
		assert.True(t, len([]rune(c)) <= 4)
		// Every chunk must be valid UTF-8 of whole runes; round-trip check.
		assert.Equal(t, c, string([]rune(c)))
	}
}
