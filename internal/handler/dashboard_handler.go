package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devmatch/internal/service/dashboard"
)

type DashboardHandler struct {
	dashboard *dashboard.Service
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard *dashboard.Service, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context(), callerID(c), callerRole(c))
	if err != nil {
		h.logger.Error("GetStats failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *DashboardHandler) GetRecentActivity(c *gin.Context) {
	activities, err := h.dashboard.RecentActivity(c.Request.Context(), callerID(c), callerRole(c))
	if err != nil {
		h.logger.Error("GetRecentActivity failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

func (h *DashboardHandler) GetMyProjects(c *gin.Context) {
	projects, err := h.dashboard.MyProjects(c.Request.Context(), callerID(c), callerRole(c))
	if err != nil {
		h.logger.Error("GetMyProjects failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *DashboardHandler) GetMyApplications(c *gin.Context) {
	applications, err := h.dashboard.MyApplications(c.Request.Context(), callerID(c), callerRole(c))
	if err != nil {
		h.logger.Error("GetMyApplications failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": applications})
}
