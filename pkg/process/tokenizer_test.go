package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTokenizer(t *testing.T) {
	resetTokenizer()
	t.Cleanup(resetTokenizer)

	require.NoError(t, InitTokenizer("cl100k_base"))
	assert.True(t, IsInitialized())
}

func TestInitTokenizer_DefaultEncoding(t *testing.T) {
	resetTokenizer()
	t.Cleanup(resetTokenizer)

	require.NoError(t, InitTokenizer(""))
	assert.True(t, IsInitialized())
}

func TestInitTokenizer_UnknownEncoding(t *testing.T) {
	resetTokenizer()
	t.Cleanup(resetTokenizer)

	assert.Error(t, InitTokenizer("gemini_secret"))
	assert.False(t, IsInitialized())
}

func TestCountTokens_Initialized(t *testing.T) {
	resetTokenizer()
	t.Cleanup(resetTokenizer)
	require.NoError(t, InitTokenizer("cl100k_base"))

	count := CountTokens("Hello, world!")
	assert.Positive(t, count)
	assert.LessOrEqual(t, count, 10)
	assert.Equal(t, count, TokenLength("Hello, world!"))
}

func TestCountTokens_Uninitialized(t *testing.T) {
	resetTokenizer()

	assert.Equal(t, -1, CountTokens("Hello, world!"))
}

func TestTokenLength_FallsBackToRunes(t *testing.T) {
	resetTokenizer()

	assert.Equal(t, 0, TokenLength(""))
	assert.Equal(t, 5, TokenLength("hello"))
	assert.Equal(t, 3, TokenLength("日本語"))
}
