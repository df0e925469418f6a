package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/internal/utils"
	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

func init() {
	utils.SetJWTSecret("realtime-test-secret")
}

// testEnv is a project P with members alice (admin) and bob (member), plus
// an outsider carol.
type testEnv struct {
	db       *gorm.DB
	metrics  *metrics.Metrics
	hub      *Hub
	chat     *services.ChatService
	projects *services.ProjectService
	project  *models.Project
	alice    *models.User
	bob      *models.User
	carol    *models.User
}

func newTestEnv(t *testing.T) *testEnv {
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

	env := &testEnv{
		db:       db,
		metrics:  metrics.New(),
		chat:     services.NewChatService(db, 10*time.Minute),
		projects: services.NewProjectService(db),
	}
	env.hub = NewHub(env.metrics)
	env.alice = env.createUser(t, "alice@x.com")
	env.bob = env.createUser(t, "bob@x.com")
	env.carol = env.createUser(t, "carol@x.com")

	ctx := context.Background()
	project, err := env.projects.Create(ctx, "p", env.alice.ID)
	require.NoError(t, err)
	project, err = env.projects.AddMember(ctx, project.ID, env.alice.ID, env.bob.Email, models.RoleMember)
	require.NoError(t, err)
	env.project = project
	return env
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "x"}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) token(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(u.ID, u.Email, 1)
	require.NoError(t, err)
	return token
}

func (e *testEnv) history(t *testing.T) []models.ChatMessage {
	t.Helper()
	msgs, err := e.chat.ListByProject(context.Background(), e.project.ID, 0)
	require.NoError(t, err)
	return msgs
}

// fakeGenerator returns reply, or err when set.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", services.ErrEmptyPrompt
	}
	return g.reply, nil
}

func (g *fakeGenerator) seen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[token], nil
}

func (s *stubRevocations) Revoke(_ context.Context, token string, _ time.Duration) error {
	if s.revoked == nil {
		s.revoked = map[string]bool{}
	}
	s.revoked[token] = true
	return nil
}
