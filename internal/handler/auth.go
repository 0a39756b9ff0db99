package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
	"github.com/iliyamo/cinema-booking-engine/internal/utils"
)

// AuthHandler registers users and issues access tokens.
type AuthHandler struct {
	Users  *service.UserService
	Secret string
	TTLMin int
	// AllowAdminSignup lets register requests ask for the ADMIN role.
	// Only development setups enable it.
	AllowAdminSignup bool
	Log              *zap.Logger
}

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=CUSTOMER ADMIN customer admin"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates a user and returns a token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	role := model.RoleCustomer
	if h.AllowAdminSignup {
		role = req.Role
	}
	u, err := h.Users.Register(c.Request().Context(), req.Email, req.Password, role)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.issue(c, http.StatusCreated, u)
}

// Login verifies credentials and returns a fresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	u, err := h.Users.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.issue(c, http.StatusOK, u)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	u, err := h.Users.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, userResp{ID: u.ID, Email: u.Email, Role: u.Role})
}

func (h *AuthHandler) issue(c echo.Context, status int, u model.User) error {
	access, err := utils.NewAccessToken(h.Secret, u.ID, u.Role, h.TTLMin, time.Now())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(status, authResp{
		User:   userResp{ID: u.ID, Email: u.Email, Role: u.Role},
		Access: tokenResp{Token: access.Token, Expires: access.Exp},
	})
}
