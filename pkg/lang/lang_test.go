package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Exact(t *testing.T) {
	tag, err := Resolve("Urdu")
	require.NoError(t, err)
	assert.Equal(t, "ur", tag.Code)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	tag, err := Resolve("urdu")
	require.NoError(t, err)
	assert.Equal(t, "ur", tag.Code)
}

func TestResolve_FuzzyTypo(t *testing.T) {
	tag, err := Resolve("Portugese")
	require.NoError(t, err)
	assert.Equal(t, "pt", tag.Code)
}

func TestResolve_Unrecognized(t *testing.T) {
	_, err := Resolve("Klingon")
	assert.Error(t, err)
}

func TestByCode(t *testing.T) {
	tag, err := ByCode("JA")
	require.NoError(t, err)
	assert.Equal(t, "Japanese", tag.Name)
}

func TestAll_HasAtLeastFifteenLanguages(t *testing.T) {
	assert.GreaterOrEqual(t, len(All()), 15)
}
