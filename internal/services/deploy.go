package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/codecraft-ai/codecraft/backend/internal/artifact"
	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

var (
	ErrDeployTokenRequired = errors.New("vercel token is required")
	ErrNothingToDeploy     = errors.New("no files to deploy")
)

// DeployError carries the message Vercel returned for a rejected deployment.
type DeployError struct {
	StatusCode int
	Message    string
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("vercel returned status %d: %s", e.StatusCode, e.Message)
}

var deployNameSanitizer = regexp.MustCompile(`[^a-z0-9-]`)

// DeploymentName lowercases name and replaces every character Vercel does
// not accept with '-'.
func DeploymentName(name string) string {
	return deployNameSanitizer.ReplaceAllString(strings.ToLower(name), "-")
}

type DeployRequest struct {
	ProjectID   uint
	ProjectName string
	Token       string
	FileTree    artifact.FileTree
}

type DeployResult struct {
	URL          string `json:"url"`
	DeploymentID string `json:"deploymentId"`
	InspectorURL string `json:"inspectorUrl"`
}

type vercelProjectSettings struct {
	Framework       string `json:"framework"`
	BuildCommand    string `json:"buildCommand"`
	OutputDirectory string `json:"outputDirectory"`
	InstallCommand  string `json:"installCommand"`
}

type vercelDeploymentRequest struct {
	Name            string                `json:"name"`
	Files           []artifact.FileEntry  `json:"files"`
	ProjectSettings vercelProjectSettings `json:"projectSettings"`
}

type vercelDeploymentResponse struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	InspectorURL string `json:"inspectorUrl"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// DeployService publishes a project's file tree to Vercel and keeps a
// per-user record of the results.
type DeployService struct {
	db         *gorm.DB
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

func NewDeployService(db *gorm.DB, baseURL string) *DeployService {
	if baseURL == "" {
		baseURL = "https://api.vercel.com"
	}
	return &DeployService{
		db:         db,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
}

func (s *DeployService) Deploy(ctx context.Context, userID uint, req *DeployRequest) (*DeployResult, error) {
	if req.Token == "" {
		return nil, ErrDeployTokenRequired
	}

	entries := artifact.Files(req.FileTree)
	if len(entries) == 0 {
		return nil, ErrNothingToDeploy
	}

	payload := vercelDeploymentRequest{
		Name:  DeploymentName(req.ProjectName),
		Files: entries,
		ProjectSettings: vercelProjectSettings{
			Framework:       "vite",
			BuildCommand:    "npm run build",
			OutputDirectory: "dist",
			InstallCommand:  "npm install",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	logger.Infof("[Deploy] POST %s/v13/deployments, name=%s, files=%d", s.baseURL, payload.Name, len(payload.Files))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v13/deployments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vercel request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out vercelDeploymentResponse
	decodeErr := json.Unmarshal(respBody, &out)

	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		logger.Warnf("[Deploy] Vercel rejected deployment %s: %d %s", payload.Name, resp.StatusCode, msg)
		return nil, &DeployError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode vercel response: %w", decodeErr)
	}

	result := &DeployResult{
		URL:          "https://" + out.URL,
		DeploymentID: out.ID,
		InspectorURL: out.InspectorURL,
	}

	record := &models.Deployment{
		UserID:       userID,
		ProjectID:    req.ProjectID,
		ProjectName:  req.ProjectName,
		Platform:     "vercel",
		URL:          result.URL,
		DeploymentID: result.DeploymentID,
		InspectorURL: result.InspectorURL,
		DeployedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.Errorf("[Deploy] Failed to record deployment %s: %v", result.DeploymentID, err)
	}

	LogInfo(AuditEntry{
		Module:    "deploy",
		Action:    "vercel",
		Message:   "Deployed " + payload.Name + " to " + result.URL,
		UserID:    uintPtr(userID),
		ProjectID: optionalID(req.ProjectID),
	})

	return result, nil
}

// List returns a user's deployments, newest first.
func (s *DeployService) List(ctx context.Context, userID uint) ([]models.Deployment, error) {
	var deployments []models.Deployment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("deployed_at DESC").
		Find(&deployments).Error
	return deployments, err
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
