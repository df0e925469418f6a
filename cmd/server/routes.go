package main

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/handlers"
	"github.com/codecraft-ai/codecraft/backend/internal/middleware"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.CORS.AllowOrigins))

	// Login attempts and direct generation calls are rate limited
	authLimiter := middleware.NewRateLimiter(1, 10)
	aiLimiter := middleware.NewRateLimiter(0.2, 3)

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics(svc.metrics))

	// Chat socket; the credential arrives in the first frame
	r.GET("/ws", svc.socketHandler.Serve)

	api := r.Group("/api")
	{
		// Public routes
		users := api.Group("/users", authLimiter.Middleware())
		{
			users.POST("/register", svc.authHandler.Register)
			users.POST("/login", svc.authHandler.Login)
		}
		api.GET("/avatar/:seed", svc.avatarHandler.Get)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.authService), middleware.AuditLog())
		{
			// Users
			protected.POST("/users/logout", svc.authHandler.Logout)
			protected.GET("/users/profile", svc.authHandler.GetCurrentUser)
			protected.GET("/users/all", svc.authHandler.ListUsers)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.PUT("/projects/:id", svc.projectHandler.Rename)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)
			protected.GET("/projects/:id/stats", svc.projectHandler.Stats)
			protected.POST("/projects/:id/members", svc.projectHandler.AddMember)
			protected.PUT("/projects/:id/members/role", svc.projectHandler.ChangeRole)
			protected.DELETE("/projects/:id/members/:userId", svc.projectHandler.RemoveMember)
			protected.GET("/projects/:id/audit-logs", svc.systemLogHandler.ListForProject)

			// Chat history and generated files
			protected.GET("/messages/:projectId", svc.messageHandler.History)
			protected.GET("/projects/:id/artifact", svc.artifactHandler.Current)
			protected.POST("/files/save", svc.artifactHandler.SaveFile)

			// Direct generation
			protected.GET("/ai/get-result", aiLimiter.Middleware(), svc.aiHandler.GetResult)

			// Deployments
			protected.POST("/deployments/vercel", svc.deploymentHandler.DeployVercel)
			protected.GET("/deployments", svc.deploymentHandler.List)
		}

		// Operator routes
		operator := api.Group("")
		operator.Use(middleware.AuthRequired(svc.authService), middleware.OperatorRequired(svc.cfg.Server.Operators), middleware.AuditLog())
		{
			operator.GET("/llm-configs", svc.llmConfigHandler.List)
			operator.GET("/llm-configs/:id", svc.llmConfigHandler.GetByID)
			operator.POST("/llm-configs", svc.llmConfigHandler.Create)
			operator.PUT("/llm-configs/:id", svc.llmConfigHandler.Update)
			operator.DELETE("/llm-configs/:id", svc.llmConfigHandler.Delete)
		}
	}
}
