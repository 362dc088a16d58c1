package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/tripmate/internal/auth"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/services"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/logger"
	"github.com/charlesng35/tripmate/pkg/metrics"
	"github.com/charlesng35/tripmate/pkg/response"
)

// AuthHandler manages registration, login and account lookups.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService) (*AuthHandler, error) {
	if jwt == nil {
		return nil, errors.New("auth handler: jwt service is required")
	}
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{users: users, jwt: jwt}, nil
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"max=255"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
	User      *models.User `json:"user"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	h.issue(c, user)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.users.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, user)
}

// LoginAs issues a token for any existing user. Only mounted when dev login is enabled.
// POST /api/dev/login-as/:id
func (h *AuthHandler) LoginAs(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	user, err := h.users.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	logger.WithModule("auth").Warn("dev login issued", zap.Uint("user_id", user.ID), zap.String("client_ip", c.ClientIP()))
	h.issue(c, user)
}

// GET /api/users/lookup?email=
func (h *AuthHandler) Lookup(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Error(c, apperrors.NewBadRequest("email is required"))
		return
	}

	user, err := h.users.FindByEmail(requestContext(c), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, user)
}

func (h *AuthHandler) issue(c *gin.Context, user *models.User) {
	token, err := h.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.OK(c, tokenResponse{
		Token:     token,
		ExpiresIn: int(h.jwt.TTL().Seconds()),
		User:      user,
	})
}
