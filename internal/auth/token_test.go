package auth

import (
	"testing"
	"time"

	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	tm := NewTokenManager("test-secret", "allowance-app", time.Hour)

	token, err := tm.Generate(models.User{ID: "user-1", Name: "Pat", Role: models.RoleParent})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := tm.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", identity.UserID)
	require.Equal(t, models.RoleParent, identity.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issued := NewTokenManager("secret-a", "allowance-app", time.Hour)
	verifier := NewTokenManager("secret-b", "allowance-app", time.Hour)

	token, err := issued.Generate(models.User{ID: "user-1", Role: models.RoleParent})
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	issued := NewTokenManager("secret", "someone-else", time.Hour)
	verifier := NewTokenManager("secret", "allowance-app", time.Hour)

	token, err := issued.Generate(models.User{ID: "user-1", Role: models.RoleParent})
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", "allowance-app", -time.Minute)

	token, err := tm.Generate(models.User{ID: "user-1", Role: models.RoleChild})
	require.NoError(t, err)

	_, err = tm.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("secret", "allowance-app", time.Hour)
	_, err := tm.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
