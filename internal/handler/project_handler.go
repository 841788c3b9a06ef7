package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devmatch/internal/model"
	"devmatch/internal/service/matching"
	"devmatch/internal/service/project"
)

type ProjectHandler struct {
	projects *project.Service
	matching *matching.Service
	logger   *zap.Logger
}

func NewProjectHandler(projects *project.Service, matching *matching.Service, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, matching: matching, logger: logger}
}

func parsePage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

// ListProjects is the public browse endpoint: filtered, sorted, paginated.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	f := model.ProjectFilters{
		Location:   c.Query("location"),
		Status:     c.Query("status"),
		Category:   c.Query("category"),
		OnlyPublic: true,
	}
	if raw := c.Query("skills"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Skills = append(f.Skills, s)
			}
		}
	}
	if raw := c.Query("max_budget"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_budget"})
			return
		}
		f.MaxBudget = &v
	}

	page, limit := parsePage(c)
	projects, pagination, err := h.projects.List(c.Request.Context(), f, page, limit,
		c.DefaultQuery("sort_by", "created_at"),
		c.DefaultQuery("sort_order", "desc"),
	)
	if err != nil {
		h.logger.Error("ListProjects failed", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects":   projects,
		"pagination": pagination,
	})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var in project.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	p, err := h.projects.Create(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var in project.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	p, err := h.projects.Update(c.Request.Context(), id, callerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), id, callerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *ProjectHandler) UpdateProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var in struct {
		Progress int `json:"progress"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	p, err := h.projects.UpdateProgress(c.Request.Context(), id, callerID(c), in.Progress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// Apply submits the caller's application to a project.
func (h *ProjectHandler) Apply(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var in matching.ApplyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a, err := h.matching.Apply(c.Request.Context(), id, callerID(c), callerRole(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application": a})
}

// ListApplications returns a project's applications to its owner.
func (h *ProjectHandler) ListApplications(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	apps, err := h.matching.ListApplications(c.Request.Context(), id, callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// DecideApplication accepts or rejects a pending application.
func (h *ProjectHandler) DecideApplication(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	applicationID, ok := pathID(c, "applicationId")
	if !ok {
		return
	}

	var in struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.matching.Decide(c.Request.Context(), projectID, applicationID, callerID(c), in.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": in.Status})
}
