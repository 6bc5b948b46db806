package auth

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("ghost_42"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 33)))
	assert.Error(t, ValidateUsername("has space"))
	assert.Error(t, ValidateUsername("bad-char!"))
}

func TestGenerateUsernameIsAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		name := GenerateUsername(rng)
		require.NoError(t, ValidateUsername(name), "generated %q", name)
	}
}

func TestAvatarURLUsesSeed(t *testing.T) {
	url := AvatarURL("ghost_42")
	assert.Contains(t, url, "seed=ghost_42")
}
