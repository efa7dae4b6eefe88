package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"todo_api/internal/domain"

	"github.com/gin-gonic/gin"
)

var errBadPayload = errors.New("invalid data format")

type CreateTaskRequest struct {
	Text      *string `json:"text"`
	IsChecked bool    `json:"isChecked"`
}

type DeleteTaskRequest struct {
	ID *int64 `json:"id"`
}

// UpdateTaskRequest keeps the single-field wire format: a JSON boolean sets
// the checked state, a JSON string replaces the text.
type UpdateTaskRequest struct {
	CurrentData json.RawMessage `json:"currentData"`
}

// TaskUpdate decodes CurrentData into an explicit update. Any JSON type other
// than boolean or string is rejected.
func (r UpdateTaskRequest) TaskUpdate() (domain.TaskUpdate, error) {
	raw := bytes.TrimSpace(r.CurrentData)
	if len(raw) == 0 {
		return domain.TaskUpdate{}, errBadPayload
	}
	switch raw[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return domain.TaskUpdate{}, errBadPayload
		}
		return domain.CheckUpdate(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.TaskUpdate{}, errBadPayload
		}
		return domain.TextUpdate(s), nil
	default:
		return domain.TaskUpdate{}, errBadPayload
	}
}

// ListTasks returns the caller's tasks.
func (h *Handler) ListTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.respondTasks(c, userID)
}

// CreateTask inserts a task and answers with the refreshed list.
func (h *Handler) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	t := &domain.Task{Text: *req.Text, IsChecked: req.IsChecked, UserID: userID}
	if err := h.Tasks.Create(c.Request.Context(), t); err != nil {
		internalError(c, "create task failed", err)
		return
	}
	h.respondTasks(c, userID)
}

// DeleteTask removes a task owned by the caller. Unknown or foreign ids are
// not an error, the caller just gets its unchanged list back.
func (h *Handler) DeleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req DeleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	if _, err := h.Tasks.Delete(c.Request.Context(), userID, *req.ID); err != nil {
		internalError(c, "delete task failed", err)
		return
	}
	h.respondTasks(c, userID)
}

// UpdateTask toggles the checked state or replaces the text of a task.
func (h *Handler) UpdateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadPayload.Error()})
		return
	}
	upd, err := req.TaskUpdate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.Tasks.Update(c.Request.Context(), userID, id, upd); err != nil {
		internalError(c, "update task failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondTasks(c *gin.Context, userID int64) {
	tasks, err := h.Tasks.ListByUser(c.Request.Context(), userID)
	if err != nil {
		internalError(c, "list tasks failed", err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}
