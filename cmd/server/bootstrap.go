package main

import (
	"github.com/codecraft-ai/codecraft/backend/internal/config"
	"github.com/codecraft-ai/codecraft/backend/internal/handlers"
	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/realtime"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/internal/utils"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	taskQueue services.TaskQueue
	worker    *services.Worker
	cleanup   *services.CleanupScheduler

	authService *services.AuthService
	hub         *realtime.Hub

	authHandler       *handlers.AuthHandler
	projectHandler    *handlers.ProjectHandler
	systemLogHandler  *handlers.SystemLogHandler
	messageHandler    *handlers.MessageHandler
	artifactHandler   *handlers.ArtifactHandler
	aiHandler         *handlers.AIHandler
	deploymentHandler *handlers.DeploymentHandler
	avatarHandler     *handlers.AvatarHandler
	llmConfigHandler  *handlers.LLMConfigHandler
	socketHandler     *handlers.SocketHandler
	healthHandler     *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)
	m := metrics.New()

	// Initialize database
	if err := models.InitDB(&cfg.Database, cfg.Server.Mode == "debug"); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		m.RegisterDB(sqlDB)
	}

	// Initialize system logger
	services.InitSystemLogger(db)

	revocations := services.NewRevocationList(cfg)
	authService := services.NewAuthService(db, &cfg.JWT, revocations)
	projectService := services.NewProjectService(db)
	chatService := services.NewChatService(db, cfg.Chat.Retention)
	systemLogService := services.NewSystemLogService(db)
	llmConfigService := services.NewLLMConfigService(db)
	aiService := services.NewAIService(llmConfigService, cfg.LLM, m)

	// Chat retention and audit log cleanup
	cleanup := services.NewCleanupScheduler(chatService, systemLogService, cfg.Chat.CleanupSchedule, cfg.Audit.RetentionDays)
	if err := cleanup.Start(); err != nil {
		logger.Fatalf("Failed to start cleanup scheduler: %v", err)
	}

	hub := realtime.NewHub(m)

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.NewTaskQueue(cfg)
	m.SetQueueAsync(taskQueue.IsAsync())
	bridge := realtime.NewBridge(taskQueue, aiService, chatService, hub, m)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(bridge.Process)
	}

	// Start async worker if the queue is backed by Redis
	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(bridge.Process)
			if err := worker.Start(); err != nil {
				logger.Fatalf("Failed to start worker: %v", err)
			}
		}
	}

	channel := realtime.NewChannel(hub, chatService, bridge, cfg.Chat.TriggerToken, m)
	socketServer := realtime.NewServer(hub, realtime.NewAuthenticator(revocations, projectService), channel, realtime.Options{
		HandshakeTimeout: cfg.Chat.HandshakeTimeout,
		SendBuffer:       cfg.Chat.SendBuffer,
	}, m)
	artifacts := realtime.NewArtifacts(chatService, projectService, hub, m)

	return &appServices{
		cfg:         cfg,
		metrics:     m,
		taskQueue:   taskQueue,
		worker:      worker,
		cleanup:     cleanup,
		authService: authService,
		hub:         hub,

		authHandler:       handlers.NewAuthHandler(authService, cfg.Server.Mode == "release"),
		projectHandler:    handlers.NewProjectHandler(projectService),
		systemLogHandler:  handlers.NewSystemLogHandler(systemLogService, projectService),
		messageHandler:    handlers.NewMessageHandler(chatService, projectService, cfg.Chat.HistoryLimit),
		artifactHandler:   handlers.NewArtifactHandler(artifacts, projectService),
		aiHandler:         handlers.NewAIHandler(aiService),
		deploymentHandler: handlers.NewDeploymentHandler(services.NewDeployService(db, cfg.Deploy.VercelBaseURL), projectService, artifacts),
		avatarHandler:     handlers.NewAvatarHandler(services.NewAvatarService(cfg.Deploy.AvatarBaseURL)),
		llmConfigHandler:  handlers.NewLLMConfigHandler(llmConfigService),
		socketHandler:     handlers.NewSocketHandler(socketServer, cfg.CORS.AllowOrigins),
		healthHandler:     handlers.NewHealthHandler(db, taskQueue, hub),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.cleanup.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
