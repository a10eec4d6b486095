package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/services"
)

type Handler struct {
	userManager      *services.UserManager
	sessionManager   *services.SessionManager
	historyManager   *services.HistoryManager
	analyticsManager *services.AnalyticsManager
	typeCache        *services.TypeCache
}

func NewHandler(userManager *services.UserManager, sessionManager *services.SessionManager, historyManager *services.HistoryManager, analyticsManager *services.AnalyticsManager, typeCache *services.TypeCache) *Handler {
	return &Handler{
		userManager:      userManager,
		sessionManager:   sessionManager,
		historyManager:   historyManager,
		analyticsManager: analyticsManager,
		typeCache:        typeCache,
	}
}

func (h *Handler) CreateOrGetUser(c *gin.Context) {
	var req struct {
		Identifier     string `json:"identifier" binding:"required"`
		IdentifierType string `json:"identifier_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier is required"})
		return
	}
	if req.IdentifierType == "" {
		req.IdentifierType = services.IdentifierFingerprint
	}

	userID, err := h.userManager.CreateOrGetUser(req.Identifier, req.IdentifierType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to resolve user",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

func (h *Handler) UpdateLastActive(c *gin.Context) {
	h.userManager.UpdateLastActive(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"preferences": h.userManager.GetPreferences(c.Param("id"))})
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req struct {
		Preferences map[string]any `json:"preferences" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "preferences is required"})
		return
	}

	if err := h.userManager.UpdatePreferences(c.Param("id"), req.Preferences); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update preferences",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) StartSession(c *gin.Context) {
	var req struct {
		UserID         string `json:"user_id" binding:"required"`
		PracticeTypeID string `json:"practice_type_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and practice_type_id are required"})
		return
	}

	sessionID, err := h.sessionManager.StartSession(req.UserID, req.PracticeTypeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to start session",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session_id": sessionID})
}

func (h *Handler) CompleteSession(c *gin.Context) {
	var req struct {
		CompletionPercentage *float64 `json:"completion_percentage"`
	}
	// Body is optional; completion defaults to 100.
	_ = c.ShouldBindJSON(&req)

	completion := 100.0
	if req.CompletionPercentage != nil {
		completion = *req.CompletionPercentage
	}

	if err := h.sessionManager.CompleteSession(c.Param("id"), completion); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to complete session",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AbandonSession(c *gin.Context) {
	if err := h.sessionManager.AbandonSession(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to abandon session",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SaveInputs(c *gin.Context) {
	var req struct {
		Inputs []models.PracticeInput `json:"inputs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "inputs is required"})
		return
	}

	if err := h.sessionManager.SaveInputs(c.Param("id"), req.Inputs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save inputs",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(req.Inputs)})
}

func (h *Handler) SaveScores(c *gin.Context) {
	var req struct {
		Scores []models.PracticeScore `json:"scores" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scores is required"})
		return
	}

	if err := h.sessionManager.SaveScores(c.Param("id"), req.Scores); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save scores",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(req.Scores)})
}

func (h *Handler) SaveFeedback(c *gin.Context) {
	var req struct {
		FeedbackText string `json:"feedback_text" binding:"required"`
		FeedbackType string `json:"feedback_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feedback_text is required"})
		return
	}
	if req.FeedbackType == "" {
		req.FeedbackType = "general"
	}

	if err := h.sessionManager.SaveFeedback(c.Param("id"), req.FeedbackText, req.FeedbackType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save feedback",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetHistory(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)

	history := h.historyManager.GetUserHistory(c.Param("id"), c.Query("type_id"), limit, offset)
	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}

func (h *Handler) GetStatistics(c *gin.Context) {
	days := parseIntQuery(c, "days", 30)
	stats := h.historyManager.GetStatistics(c.Param("id"), c.Query("type_id"), days)
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) DeleteHistory(c *gin.Context) {
	typeID := c.Query("type_id")
	if typeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type_id is required"})
		return
	}

	deleted, err := h.historyManager.DeleteUserHistoryByType(c.Param("id"), typeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete history",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_sessions": deleted})
}

func (h *Handler) GetScoreTrends(c *gin.Context) {
	days := parseIntQuery(c, "days", 30)
	trends := h.analyticsManager.GetScoreTrends(c.Param("id"), c.Query("type_id"), c.Query("category"), days)
	c.JSON(http.StatusOK, gin.H{
		"trends": trends,
		"count":  len(trends),
	})
}

func (h *Handler) GetCategoryPerformance(c *gin.Context) {
	days := parseIntQuery(c, "days", 30)
	c.JSON(http.StatusOK, h.analyticsManager.GetCategoryPerformance(c.Param("id"), days))
}

func (h *Handler) GetPracticeTypes(c *gin.Context) {
	types, err := h.typeCache.GetTypes(c.Query("refresh") == "true")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get practice types",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"practice_types": types,
		"count":          len(types),
	})
}

func parseIntQuery(c *gin.Context, name string, defaultValue int) int {
	if raw := c.Query(name); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}
