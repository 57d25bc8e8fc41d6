package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/response"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/validation"
)

type TaskHandler struct {
	Svc    *application.TaskService
	Logger *logrus.Logger
}

func NewTaskHandler(svc *application.TaskService, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{Svc: svc, Logger: logger}
}

// user_id is deliberately absent: the owner always comes from the token.
type createTaskRequest struct {
	Title       string `json:"title" binding:"required,title"`
	Description string `json:"description" binding:"max=10000"`
	Completed   bool   `json:"completed"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,title"`
	Description *string `json:"description" binding:"omitempty,max=10000"`
	Completed   *bool   `json:"completed"`
}

type searchTasksQuery struct {
	Q    string `json:"q" form:"q" binding:"required,max=200"`
	Size int    `json:"size" form:"size" binding:"omitempty,gte=1,lte=50"`
}

func (h *TaskHandler) identity(c *gin.Context) (entity.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		middleware.AbortUnauthorized(c)
	}
	return id, ok
}

// List GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	list, err := h.Svc.List(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, taskListResponse{
		Tasks:           toTaskResponses(list.Tasks),
		TotalCount:      list.Summary.Total,
		CompletedCount:  list.Summary.Completed,
		IncompleteCount: list.Summary.Incomplete,
	}, "ok")
}

// Create POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.ToDetails(err))
		return
	}
	t, err := h.Svc.Create(c.Request.Context(), id, application.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusCreated, toTaskResponse(t), "task created")
}

// Search GET /api/tasks/search?q=&size=
func (h *TaskHandler) Search(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var q searchTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, validation.ToDetails(err))
		return
	}
	tasks, err := h.Svc.SearchTasks(c.Request.Context(), id, q.Q, q.Size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"tasks": toTaskResponses(tasks)}, "ok")
}

// Get GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	t, err := h.Svc.Get(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toTaskResponse(t), "ok")
}

// Update PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.ToDetails(err))
		return
	}
	t, err := h.Svc.Update(c.Request.Context(), id, c.Param("id"), entity.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toTaskResponse(t), "task updated")
}

// ToggleComplete PATCH /api/tasks/:id/complete
func (h *TaskHandler) ToggleComplete(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	t, err := h.Svc.ToggleComplete(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toTaskResponse(t), "task toggled")
}

// Delete DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
