package tokens

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenDeterministic(t *testing.T) {
	a := GenerateToken("Some_Podcast", "7")
	b := GenerateToken("Some_Podcast", "7")

	assert.Equal(t, a, b)
	assert.Len(t, a, TokenLength)
	assert.NotEqual(t, a, GenerateToken("Some_Podcast", "8"))
	assert.NotEqual(t, a, GenerateToken("Other_Podcast", "7"))
}

func TestGenerateTokenIsURLSafe(t *testing.T) {
	token := GenerateToken("folder", "0")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken()
	require.NoError(t, err)
	b, err := RandomToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, TokenLength)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, randomBytes)
}

func TestGeneratorModes(t *testing.T) {
	seeded := NewSeededGenerator("s")
	assert.True(t, seeded.Seeded())

	t1, err := seeded.Token("A")
	require.NoError(t, err)
	assert.Equal(t, GenerateToken("A", "s"), t1)

	random := NewRandomGenerator()
	assert.False(t, random.Seeded())

	r1, err := random.Token("A")
	require.NoError(t, err)
	r2, err := random.Token("A")
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)
}
