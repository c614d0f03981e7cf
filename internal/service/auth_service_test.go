package service

import (
	"context"
	"testing"
	"time"

	"pujaledger/internal/config"
	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/testutil"
	"pujaledger/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(testutil.NewDB(t), config.JWTConfig{
		Secret: "test-secret", Issuer: "puja-ledger", ExpireHours: 1,
	}, logging.Nop())
}

func TestLoginAndVerify(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	identity, err := auth.CreateUser(ctx, "manager1", "pw", model.IdentityRoleManager)
	require.NoError(t, err)

	result, err := auth.Login(ctx, "manager1", "pw")
	require.NoError(t, err)
	assert.Equal(t, model.IdentityRoleManager, result.Role)

	principal, err := auth.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, principal.IdentityID)
	assert.Equal(t, model.IdentityRoleManager, principal.Role)

	_, err = auth.Login(ctx, "manager1", "wrong")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))
	_, err = auth.Login(ctx, "nobody", "pw")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	auth := newAuth(t)
	identity := &model.Identity{ID: 7, Role: model.IdentityRoleAdmin}

	token, err := auth.IssueToken(identity)
	require.NoError(t, err)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.Verify(token)
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))
	auth.now = time.Now

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		IdentityID: 7,
		Role:       model.IdentityRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "puja-ledger",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = auth.Verify(signed)
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	_, err = auth.Verify("not-a-token")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))
}

func TestChangePassword(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	identity, err := auth.CreateUser(ctx, "admin2", "old", model.IdentityRoleAdmin)
	require.NoError(t, err)

	err = auth.ChangePassword(ctx, identity.ID, "wrong", "new")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))

	require.NoError(t, auth.ChangePassword(ctx, identity.ID, "old", "new"))
	_, err = auth.Login(ctx, "admin2", "old")
	assert.Error(t, err)
	_, err = auth.Login(ctx, "admin2", "new")
	assert.NoError(t, err)
}

func TestCreateUser_Validation(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	_, err := auth.CreateUser(ctx, "dup", "pw", model.IdentityRoleManager)
	require.NoError(t, err)

	_, err = auth.CreateUser(ctx, "dup", "pw", model.IdentityRoleManager)
	assert.True(t, apperr.HasCode(err, apperr.CodeDuplicateLogin))

	_, err = auth.CreateUser(ctx, "x", "pw", "User")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidRole))

	_, err = auth.CreateUser(ctx, "", "pw", model.IdentityRoleAdmin)
	assert.True(t, apperr.HasCode(err, apperr.CodeLoginRequired))
}
