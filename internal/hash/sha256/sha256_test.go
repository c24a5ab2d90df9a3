package sha256

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmptyResult(t *testing.T) {
	t.Parallel()

	got, err := New().Hash([]byte("[]"))
	require.NoError(t, err)
	assert.Equal(t, "4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945", got)
}

func TestHashDistinguishesOutputs(t *testing.T) {
	t.Parallel()

	h := New()
	a, err := h.Hash([]byte(`[{"title":"Wochenangebote"}]`))
	require.NoError(t, err)
	again, err := h.Hash([]byte(`[{"title":"Wochenangebote"}]`))
	require.NoError(t, err)
	b, err := h.Hash([]byte(`[{"title":"Prospekt"}]`))
	require.NoError(t, err)

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}
