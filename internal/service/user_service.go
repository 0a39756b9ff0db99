package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
	"github.com/iliyamo/cinema-booking-engine/internal/utils"
)

const minPasswordLen = 8

// UserService registers and authenticates accounts.  Email doubles as
// the username.
type UserService struct {
	store      repository.Store
	bcryptCost int
}

func NewUserService(store repository.Store, bcryptCost int) *UserService {
	return &UserService{store: store, bcryptCost: bcryptCost}
}

// Register creates a CUSTOMER account unless role asks for ADMIN.
func (s *UserService) Register(ctx context.Context, email, password, role string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return model.User{}, apperr.Invalid("email %q is not valid", email)
	}
	if len(password) < minPasswordLen {
		return model.User{}, apperr.Invalid("password must be at least %d characters", minPasswordLen)
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if role != model.RoleAdmin {
		role = model.RoleCustomer
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{Email: email, PasswordHash: hash, Role: role}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, apperr.Business(apperr.CodeEmailTaken, "email %s is already registered", email)
		}
		return model.User{}, err
	}
	return u, nil
}

// Authenticate returns the user when the password matches.  Unknown
// emails and wrong passwords fail the same way.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperr.Unauthorized("invalid credentials")
		}
		return model.User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, apperr.Unauthorized("invalid credentials")
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	return u, notFound(err, "user", id)
}
