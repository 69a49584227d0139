package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ChattyWidget/internal/config"
	"ChattyWidget/internal/database/mysql"
	"ChattyWidget/internal/embedding"
	"ChattyWidget/internal/models"
	"ChattyWidget/internal/orchestrator"
	"ChattyWidget/pkg/logger"
)

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	orch       *orchestrator.Orchestrator
	embeddings *embedding.Store
	cfg        *config.AppConfig
	log        *logger.Logger
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(orch *orchestrator.Orchestrator, embeddings *embedding.Store, cfg *config.AppConfig, log *logger.Logger) *Handler {
	return &Handler{
		orch:       orch,
		embeddings: embeddings,
		cfg:        cfg,
		log:        log.WithComponent("api"),
	}
}

// QueryBody 定义了查询请求的 JSON 结构。
type QueryBody struct {
	Query               string  `json:"query" binding:"required"`
	ModelID             string  `json:"model_id" binding:"required"`
	DocumentIDs         []uint  `json:"document_ids"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	EscalationEnabled   *bool   `json:"escalation_enabled"` // 缺省为开启
}

func (b *QueryBody) toRequest(c *gin.Context) *models.QueryRequest {
	userID, tier := userIdentity(c)
	escalation := true
	if b.EscalationEnabled != nil {
		escalation = *b.EscalationEnabled
	}
	return &models.QueryRequest{
		Query:               b.Query,
		ModelID:             b.ModelID,
		DocumentIDs:         b.DocumentIDs,
		ConfidenceThreshold: b.ConfidenceThreshold,
		EscalationEnabled:   escalation,
		UserID:              userID,
		Tier:                tier,
	}
}

// Query 处理同步查询请求。
func (h *Handler) Query(c *gin.Context) {
	var body QueryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.orch.ProcessQuery(c.Request.Context(), body.toRequest(c))
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownModel) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// QueryStream 以 Server-Sent Events 处理流式查询请求。
// 增量内容以 "message" 事件发出，终止时发一条带元数据的 "done" 或 "error" 事件。
func (h *Handler) QueryStream(c *gin.Context) {
	var body QueryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.orch.StreamQuery(c.Request.Context(), body.toRequest(c))
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownModel) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		switch {
		case ev.Err != nil:
			c.SSEvent("error", gin.H{"error": ev.Err.Error()})
			return false
		case ev.Done:
			c.SSEvent("done", gin.H{
				"response_id":        ev.ResponseID,
				"confidence":         ev.Confidence,
				"model_id":           ev.ModelID,
				"needs_human_review": ev.NeedsHumanReview,
				"references":         ev.References,
			})
			return false
		default:
			c.SSEvent("message", gin.H{"content": ev.Content})
			return true
		}
	})
}

// ListModels 返回当前订阅等级可用的模型。
func (h *Handler) ListModels(c *gin.Context) {
	_, tier := userIdentity(c)
	c.JSON(http.StatusOK, gin.H{"models": h.orch.ListModels(tier)})
}

// FeedbackBody 定义了反馈请求的 JSON 结构。
type FeedbackBody struct {
	ResponseID string `json:"response_id" binding:"required"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment"`
}

// Feedback 记录调用方对某次回答的反馈。
func (h *Handler) Feedback(c *gin.Context) {
	var body FeedbackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := userIdentity(c)
	fb := &models.Feedback{
		ResponseID: body.ResponseID,
		UserID:     userID,
		Rating:     body.Rating,
		Comment:    body.Comment,
	}
	if err := h.orch.RecordFeedback(c.Request.Context(), fb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "反馈已记录"})
}

// ProcessDocument 触发一篇文档的分块与向量化。
func (h *Handler) ProcessDocument(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的文档 ID"})
		return
	}

	if err := h.embeddings.Process(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "文档处理完成", "document_id": id})
}

// Health 检查核心依赖的连通性。MySQL 必检，其余按启用情况检查。
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := gin.H{"service": h.cfg.App.Name, "status": "ok"}
	code := http.StatusOK

	if err := mysql.HealthCheck(ctx); err != nil {
		status["status"] = "degraded"
		status["mysql"] = fmt.Sprintf("unhealthy: %v", err)
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, status)
}
