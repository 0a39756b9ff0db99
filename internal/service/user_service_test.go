package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryStore(), bcrypt.MinCost)

	u, err := svc.Register(ctx, "  Ana@Example.com ", "correct horse", "")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, model.RoleCustomer, u.Role)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "ANA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ana@example.com", "wrong password")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = svc.Register(ctx, "ana@example.com", "another pass", "")
	assert.Equal(t, apperr.CodeEmailTaken, apperr.CodeOf(err))
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryStore(), bcrypt.MinCost)

	_, err := svc.Register(ctx, "not-an-email", "long enough", "")
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	_, err = svc.Register(ctx, "bob@example.com", "short", "")
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	admin, err := svc.Register(ctx, "root@example.com", "long enough", "admin")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	_, err = svc.Get(ctx, 999)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
