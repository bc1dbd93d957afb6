package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"scale/backend/go/internal/gateway_service/service"
	"scale/backend/go/internal/models"
	"scale/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler bundles the gateway's HTTP endpoint handlers.
type Handler struct {
	service   *service.Service
	logger    *logger.Logger
	uploadDir string
}

// NewHandler creates a new Handler.
func NewHandler(s *service.Service, uploadDir string, logger *logger.Logger) *Handler {
	return &Handler{service: s, logger: logger, uploadDir: uploadDir}
}

func requestInfo(c *gin.Context) models.RequestInfo {
	return models.RequestInfo{
		Method:     c.Request.Method,
		Path:       c.Request.URL.Path,
		RemoteAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
}

// --- Registration and Login Handlers ---

// RegisterRequest 定义了注册请求的 JSON 结构。
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	APIKey   string `json:"api_key" binding:"required"`
}

// Register handles user registration.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.Username, req.Password, req.APIKey)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.WithRequest(requestInfo(c)).
		WithPayload(map[string]interface{}{"user_id": user.ID}).
		Info("User registered")
	c.JSON(http.StatusOK, gin.H{"message": "User created successfully", "user_id": user.ID})
}

// LoginRequest 定义了登录请求的 JSON 结构。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login and returns a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "token_type": "bearer"})
}

// --- Summarization Handlers ---

// SummarizeYouTubeRequest 定义了视频摘要请求的 JSON 结构。
type SummarizeYouTubeRequest struct {
	URL string `json:"url" binding:"required"`
}

// SummarizeYouTube submits a video-reference task and waits (bounded)
// for its result.
func (h *Handler) SummarizeYouTube(c *gin.Context) {
	userID := c.GetUint("userID")

	var req SummarizeYouTubeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.WithRequest(requestInfo(c)).
		WithPayload(map[string]interface{}{"user_id": userID}).
		Info("Received youtube summarization request")

	task, err := h.service.SubmitTask(c.Request.Context(), userID, models.TaskTypeYouTube, req.URL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit task"})
		return
	}

	h.awaitAndRespond(c, task.ID)
}

// SummarizeFile accepts a multipart file upload, stores it locally and
// submits an uploaded-file task.
func (h *Handler) SummarizeFile(c *gin.Context) {
	userID := c.GetUint("userID")

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return
	}

	dst := filepath.Join(h.uploadDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
		return
	}

	h.logger.WithRequest(requestInfo(c)).
		WithPayload(map[string]interface{}{"user_id": userID, "filename": file.Filename}).
		Info("Received file summarization request")

	task, err := h.service.SubmitTask(c.Request.Context(), userID, models.TaskTypeFile, dst)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit task"})
		return
	}

	h.awaitAndRespond(c, task.ID)
}

// awaitAndRespond maps the await outcome onto stable HTTP codes:
// 200 with the summary, 500 for a processing failure (detail mirrors the
// task's result text), 504 for a timeout.
func (h *Handler) awaitAndRespond(c *gin.Context, taskID uint) {
	result, err := h.service.AwaitResult(c.Request.Context(), taskID)
	if err != nil {
		var perr *service.ProcessingError
		switch {
		case errors.As(err, &perr):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed: " + perr.Detail})
		case errors.Is(err, service.ErrTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Processing timeout"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": result})
}
