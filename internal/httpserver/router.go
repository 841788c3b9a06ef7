package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"devmatch/internal/handler"
	"devmatch/pkg/mq"
)

// NewRouter wires the full HTTP surface. Project browsing is public;
// everything else sits behind the auth middleware.
func NewRouter(
	authHandler *handler.AuthHandler,
	projectHandler *handler.ProjectHandler,
	messageHandler *handler.MessageHandler,
	dashboardHandler *handler.DashboardHandler,
	jwtSecret string,
	denylist TokenDenylist,
	logger *zap.Logger,
	db *pgxpool.Pool,
	publisher *mq.Publisher,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public surface
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/projects", projectHandler.ListProjects)
	r.GET("/projects/:id", projectHandler.GetProject)

	// Authenticated surface
	authed := r.Group("/", AuthMiddleware(jwtSecret, denylist))
	{
		authed.POST("/logout", authHandler.Logout)
		authed.GET("/me", authHandler.Me)

		authed.POST("/projects", projectHandler.CreateProject)
		authed.PUT("/projects/:id", projectHandler.UpdateProject)
		authed.DELETE("/projects/:id", projectHandler.DeleteProject)
		authed.PUT("/projects/:id/progress", projectHandler.UpdateProgress)

		authed.POST("/projects/:id/apply", projectHandler.Apply)
		authed.GET("/projects/:id/applications", projectHandler.ListApplications)
		authed.PUT("/projects/:id/applications/:applicationId", projectHandler.DecideApplication)

		authed.POST("/messages", messageHandler.SendMessage)
		authed.GET("/messages", messageHandler.ListMessages)
		authed.GET("/messages/inbox", messageHandler.GetInbox)
		authed.GET("/messages/unread-count", messageHandler.GetUnreadCount)
		authed.GET("/messages/conversation/:userId", messageHandler.GetConversation)
		authed.GET("/messages/:id", messageHandler.GetMessage)
		authed.POST("/messages/:id/reply", messageHandler.ReplyToMessage)
		authed.PUT("/messages/:id", messageHandler.UpdateMessage)
		authed.DELETE("/messages/:id", messageHandler.DeleteMessage)
		authed.PUT("/messages/:id/read", messageHandler.MarkMessageRead)

		authed.GET("/dashboard/stats", dashboardHandler.GetStats)
		authed.GET("/dashboard/activity", dashboardHandler.GetRecentActivity)
		authed.GET("/dashboard/my-projects", dashboardHandler.GetMyProjects)
		authed.GET("/dashboard/my-applications", dashboardHandler.GetMyApplications)
	}

	return r
}
