package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewManager("secret", "postback-platform", 1)

	token, err := m.GenerateToken(7, "ops", "admin")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	issued, err := NewManager("other-secret", "postback-platform", 1).GenerateToken(1, "ops", "admin")
	require.NoError(t, err)

	_, err = NewManager("secret", "postback-platform", 1).ValidateToken(issued)
	assert.Error(t, err)

	wrongIssuer, err := NewManager("secret", "someone-else", 1).GenerateToken(1, "ops", "admin")
	require.NoError(t, err)
	_, err = NewManager("secret", "postback-platform", 1).ValidateToken(wrongIssuer)
	assert.Error(t, err)
}
