package jwt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateToken("uid-1", "ada@example.com", "secret")
	require.NoError(t, err)

	claims, err := ValidateAndGetClaims(token, "secret")
	require.NoError(t, err)
	require.Equal(t, "uid-1", claims["id"])
	require.Equal(t, "ada@example.com", claims["email"])
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("uid-1", "ada@example.com", "secret")
	require.NoError(t, err)

	_, err = ValidateAndGetClaims(token, "other-secret")
	require.Error(t, err)
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := GenerateToken("uid-1", "ada@example.com", "")
	require.Error(t, err)
}
