package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codecraft-ai/codecraft/backend/internal/config"
	"github.com/codecraft-ai/codecraft/backend/internal/middleware"
	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/realtime"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/internal/utils"
	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("handlers-test-secret")
}

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", services.ErrEmptyPrompt
	}
	return g.reply, g.err
}

// testAPI is the HTTP surface backed by an in-memory database.
type testAPI struct {
	db        *gorm.DB
	router    *gin.Engine
	chat      *services.ChatService
	projects  *services.ProjectService
	generator *stubGenerator
}

func newTestAPI(t *testing.T, vercelURL, avatarURL string) *testAPI {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.Migrate(db))

	m := metrics.New()
	hub := realtime.NewHub(m)
	chat := services.NewChatService(db, 10*time.Minute)
	projects := services.NewProjectService(db)
	auth := services.NewAuthService(db, &config.JWTConfig{ExpireHour: 1}, services.NewMemoryRevocationList(100, time.Hour))
	artifacts := realtime.NewArtifacts(chat, projects, hub, m)
	generator := &stubGenerator{}

	authHandler := NewAuthHandler(auth, false)
	projectHandler := NewProjectHandler(projects)
	messageHandler := NewMessageHandler(chat, projects, 50)
	artifactHandler := NewArtifactHandler(artifacts, projects)
	aiHandler := NewAIHandler(generator)
	deploymentHandler := NewDeploymentHandler(services.NewDeployService(db, vercelURL), projects, artifacts)
	avatarHandler := NewAvatarHandler(services.NewAvatarService(avatarURL))

	r := gin.New()
	api := r.Group("/api")
	api.POST("/users/register", authHandler.Register)
	api.POST("/users/login", authHandler.Login)
	api.GET("/avatar/:seed", avatarHandler.Get)

	protected := api.Group("", middleware.AuthRequired(auth))
	protected.POST("/users/logout", authHandler.Logout)
	protected.GET("/users/profile", authHandler.GetCurrentUser)
	protected.GET("/users/all", authHandler.ListUsers)
	protected.GET("/projects", projectHandler.List)
	protected.POST("/projects", projectHandler.Create)
	protected.GET("/projects/:id", projectHandler.GetByID)
	protected.PUT("/projects/:id", projectHandler.Rename)
	protected.DELETE("/projects/:id", projectHandler.Delete)
	protected.GET("/projects/:id/stats", projectHandler.Stats)
	protected.POST("/projects/:id/members", projectHandler.AddMember)
	protected.DELETE("/projects/:id/members/:userId", projectHandler.RemoveMember)
	protected.PUT("/projects/:id/members/role", projectHandler.ChangeRole)
	protected.GET("/projects/:id/artifact", artifactHandler.Current)
	protected.GET("/messages/:projectId", messageHandler.History)
	protected.POST("/files/save", artifactHandler.SaveFile)
	protected.GET("/ai/get-result", aiHandler.GetResult)
	protected.POST("/deployments/vercel", deploymentHandler.DeployVercel)
	protected.GET("/deployments", deploymentHandler.List)

	return &testAPI{db: db, router: r, chat: chat, projects: projects, generator: generator}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// register creates an account and returns its token and id.
func (a *testAPI) register(t *testing.T, email string) (string, uint) {
	t.Helper()
	w, env := a.do(t, "POST", "/api/users/register", "", gin.H{"email": email, "password": "secret"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result services.LoginResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	return result.Token, result.User.ID
}

func (a *testAPI) createProject(t *testing.T, token, name string) uint {
	t.Helper()
	w, env := a.do(t, "POST", "/api/projects", token, gin.H{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var project models.Project
	require.NoError(t, json.Unmarshal(env.Data, &project))
	return project.ID
}
