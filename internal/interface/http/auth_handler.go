package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	"github.com/oksasatya/go-ddd-task-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/response"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/validation"
)

type AuthHandler struct {
	Auth   *application.Authenticator
	Users  *application.UserService
	Logger *logrus.Logger
}

func NewAuthHandler(auth *application.Authenticator, users *application.UserService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Users: users, Logger: logger}
}

type signUpRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,pwd"`
	Name     string `json:"name" binding:"max=255"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func toAuthResponse(res *application.AuthResult) authResponse {
	return authResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
		User:        toUserResponse(res.User),
	}
}

// SignUp POST /api/auth/sign-up
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.ToDetails(err))
		return
	}
	res, err := h.Auth.SignUp(c.Request.Context(), application.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusCreated, toAuthResponse(res), "account created")
}

// SignIn POST /api/auth/sign-in
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.ToDetails(err))
		return
	}
	res, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toAuthResponse(res), "signed in")
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		middleware.AbortUnauthorized(c)
		return
	}
	u, err := h.Users.GetProfile(c.Request.Context(), id, id.Subject)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"user":       toUserResponse(u),
		"expires_at": id.ExpiresAt,
	}, "ok")
}
