package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/codecraft-ai/codecraft/backend/internal/config"
	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

// FailureReply is posted in place of a generation that could not be obtained.
const FailureReply = "Something Went Wrong Please Try Again"

var ErrEmptyPrompt = errors.New("prompt is required and must be a non-empty string")

// TextGenerator turns a user prompt into the assistant's reply text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const fence = "```"

// generationInstruction is prepended to every prompt. It asks for a single
// fenced json block in the artifact layout the clients decode.
var generationInstruction = strings.Join([]string{
	"You are an expert React developer. You build small, complete React 18 applications",
	"with functional components, hooks and Vite. Keep the project modular, comment where",
	"it helps the reader, and only create the files the request needs.",
	"",
	"Reply with exactly one " + fence + "json block and nothing else:",
	fence + "json",
	`{`,
	`  "text": "one or two sentences describing what you built",`,
	`  "fileTree": { ... },`,
	`  "buildCommand": { "mainItem": "npm", "commands": ["install"] },`,
	`  "startCommand": { "mainItem": "npm", "commands": ["run", "dev"] }`,
	`}`,
	fence,
	"",
	"fileTree uses the WebContainer FileSystemTree layout. A file is",
	`  "name.ext": { "file": { "contents": "..." } }`,
	"and a directory is",
	`  "dirname": { "directory": { ...entries } }`,
	"Every directory entry MUST use the \"directory\" key and every file entry MUST use the",
	"\"file\" key with a string \"contents\". A generated application always includes",
	"package.json, vite.config.js, index.html, src/main.jsx and src/App.jsx.",
	"",
	"When the message is conversation rather than a build request, reply with a block",
	"that only carries \"text\".",
}, "\n")

// BuildPrompt prefixes the user's prompt with the generation instruction.
func BuildPrompt(prompt string) string {
	return generationInstruction + "\n\n" + prompt
}

type llmCaller func(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error)

type AIService struct {
	configs  *LLMConfigService
	fallback config.LLMConfig
	metrics  *metrics.Metrics
	call     llmCaller
}

func NewAIService(configs *LLMConfigService, fallback config.LLMConfig, m *metrics.Metrics) *AIService {
	s := &AIService{
		configs:  configs,
		fallback: fallback,
		metrics:  m,
	}
	s.call = s.callLLM
	return s
}

// Generate asks the configured providers in order and returns the first
// successful reply.
func (s *AIService) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	full := BuildPrompt(prompt)
	logger.Infof("[AI] Prompt length: %d chars (user part %d chars)", len(full), len(prompt))

	llmConfigs := s.orderedConfigs(ctx)
	if len(llmConfigs) == 0 {
		return "", errors.New("no LLM configuration available")
	}

	var lastErr error
	for i := range llmConfigs {
		llmConfig := &llmConfigs[i]
		logger.Infof("[AI] Attempting LLM %d/%d: %s (provider: %s, model: %s)",
			i+1, len(llmConfigs), llmConfig.Name, llmConfig.Provider, llmConfig.Model)

		start := time.Now()
		content, err := s.call(ctx, llmConfig, full)
		s.record(llmConfig.Provider, err, time.Since(start))
		if err == nil {
			logger.Infof("[AI] Success with LLM: %s, response length: %d chars", llmConfig.Name, len(content))
			return content, nil
		}

		lastErr = err
		logger.Warnf("[AI] LLM %s failed: %v, trying next...", llmConfig.Name, err)
		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("all LLMs failed, last error: %w", lastErr)
}

func (s *AIService) record(provider string, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordGeneration(providerName(provider), outcome, elapsed.Seconds())
}

// orderedConfigs returns the stored chain, or the configured fallback when
// no provider row is active.
func (s *AIService) orderedConfigs(ctx context.Context) []models.LLMConfig {
	var configs []models.LLMConfig
	if s.configs != nil {
		chain, err := s.configs.Chain(ctx)
		if err != nil {
			logger.Warnf("[AI] Failed to load provider chain: %v", err)
		}
		configs = chain
	}

	if len(configs) == 0 {
		configs = append(configs, models.LLMConfig{
			Name:        "fallback",
			Provider:    s.fallback.Provider,
			BaseURL:     s.fallback.BaseURL,
			APIKey:      s.fallback.APIKey,
			Model:       s.fallback.Model,
			MaxTokens:   s.fallback.MaxTokens,
			Temperature: s.fallback.Temperature,
		})
	}
	return configs
}

func providerName(provider string) string {
	if provider == "" {
		return "openai"
	}
	return provider
}

// callLLM dispatches to the provider-specific client.
func (s *AIService) callLLM(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	switch llmConfig.Provider {
	case "gemini":
		return s.callGemini(ctx, llmConfig, prompt)
	case "anthropic":
		return s.callAnthropic(ctx, llmConfig, prompt)
	case "ollama":
		return s.callOllama(ctx, llmConfig, prompt)
	case "azure":
		return s.callAzure(ctx, llmConfig, prompt)
	default:
		// openai and other OpenAI-compatible services
		return s.callOpenAI(ctx, llmConfig, prompt)
	}
}

func (s *AIService) callGemini(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: llmConfig.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := llmConfig.Model
	if model == "" {
		model = "gemini-2.5-pro"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	content := resp.Text()
	if content == "" {
		return "", errors.New("Gemini returned an empty response")
	}
	return content, nil
}

func (s *AIService) callOpenAI(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(llmConfig.APIKey)
	if llmConfig.BaseURL != "" {
		clientConfig.BaseURL = llmConfig.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: llmConfig.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperatureOf(llmConfig),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *AIService) callAnthropic(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(llmConfig.APIKey)}
	if llmConfig.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(llmConfig.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := int64(llmConfig.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 8192
	}

	model := llmConfig.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

func (s *AIService) callOllama(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	baseURL := llmConfig.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := llmConfig.Model
	if model == "" {
		model = "llama3"
	}

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: map[string]interface{}{
			"temperature": llmConfig.Temperature,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}
	return content.String(), nil
}

// callAzure expects BaseURL https://{resource}.openai.azure.com and the
// deployment name in Model.
func (s *AIService) callAzure(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	client := openai.NewClientWithConfig(openai.DefaultAzureConfig(llmConfig.APIKey, llmConfig.BaseURL))

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: llmConfig.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperatureOf(llmConfig),
	})
	if err != nil {
		return "", fmt.Errorf("Azure OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from Azure OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func temperatureOf(llmConfig *models.LLMConfig) float32 {
	if llmConfig.Temperature > 0 {
		return float32(llmConfig.Temperature)
	}
	return 0.4
}
