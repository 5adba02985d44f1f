package services

import (
	"context"
	"testing"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// coût minimal, les tests n'ont pas besoin d'un hash robuste
var testHasher = utils.NewPasswordHasher(utils.Argon2Params{Time: 1, MemoryKB: 8 * 1024, Threads: 1})

func TestSignupVerifyLogin(t *testing.T) {
	users := newMemUsers()
	signups := &memSignups{}
	mailer := &recordingMailer{}
	svc := NewAuthService(users, signups, mailer, &inlineTasks{}, testHasher, testSecret)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterInput{Email: " Chef@Miam.test ", Password: "motdepasse", Name: "Chef", Role: models.RoleVendor}))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "chef@miam.test", mailer.sent[0].To)

	pending, err := signups.Get(ctx, "chef@miam.test")
	require.NoError(t, err)
	assert.Len(t, pending.Code, 6)

	_, err = svc.Verify(ctx, "chef@miam.test", "000000x")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	res, err := svc.Verify(ctx, "chef@miam.test", pending.Code)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, res.User.Role)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims["user_id"])
	assert.Equal(t, "vendor", claims["role"])

	_, err = signups.Get(ctx, "chef@miam.test")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = svc.Register(ctx, RegisterInput{Email: "chef@miam.test", Password: "motdepasse", Name: "Chef"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	logged, err := svc.Login(ctx, "CHEF@miam.test", "motdepasse")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, logged.User.ID)

	_, err = svc.Login(ctx, "chef@miam.test", "mauvais")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Login(ctx, "inconnu@miam.test", "motdepasse")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	me, err := svc.Me(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "chef@miam.test", me.Email)
}

func TestVerifyGivesUpAfterTooManyAttempts(t *testing.T) {
	signups := &memSignups{}
	svc := NewAuthService(newMemUsers(), signups, nil, nil, testHasher, testSecret)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterInput{Email: "a@miam.test", Password: "motdepasse", Name: "A"}))
	pending, _ := signups.Get(ctx, "a@miam.test")
	assert.Equal(t, models.RoleCustomer, pending.Role)

	for i := 0; i < maxSignupAttempts; i++ {
		_, err := svc.Verify(ctx, "a@miam.test", "wrong")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}

	_, err := svc.Verify(ctx, "a@miam.test", pending.Code)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
