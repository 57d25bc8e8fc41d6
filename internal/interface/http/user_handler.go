package handlers

import (
	"bufio"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	"github.com/oksasatya/go-ddd-task-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/response"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/validation"
)

// MaxAvatarBytes caps avatar uploads.
const MaxAvatarBytes = 5 << 20

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type updateProfileRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=255"`
	Password *string `json:"password" binding:"omitempty,pwd"`
}

// GetProfile GET /api/users/:id
func (h *UserHandler) GetProfile(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		middleware.AbortUnauthorized(c)
		return
	}
	u, err := h.Svc.GetProfile(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toUserResponse(u), "ok")
}

// UpdateProfile PUT /api/users/:id
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		middleware.AbortUnauthorized(c)
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), id, c.Param("id"), application.UpdateProfileInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toUserResponse(u), "profile updated")
}

// UploadAvatar PUT /api/users/:id/avatar (multipart field "file")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		middleware.AbortUnauthorized(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxAvatarBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, map[string]string{"file": "is required"})
		return
	}
	if fh.Size > MaxAvatarBytes {
		badRequest(c, map[string]string{"file": "must be at most 5MB"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	// trust the bytes, not the client's Content-Type
	br := bufio.NewReaderSize(f, 512)
	head, _ := br.Peek(512)
	contentType := http.DetectContentType(head)

	url, err := h.Svc.UploadAvatar(c.Request.Context(), id, c.Param("id"), br, contentType)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar updated")
}

// Delete DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		middleware.AbortUnauthorized(c)
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
