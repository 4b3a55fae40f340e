package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/sashabaranov/go-openai"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
	"github.com/randalmurphal/todosync/templates"
)

// KnownTask is a task already tracked, offered to the model so it can reuse
// the id when the conversation mentions the same task again.
type KnownTask struct {
	ID          string
	Description string
}

// Request is the input to one extraction.
type Request struct {
	Text  string
	Known []KnownTask
}

// Extractor turns free-form text into candidate tasks.
//
// Extract reports unusable output through Result.Failed, never through the
// error return; the error is only for ctx cancellation or deadline.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Result, error)
}

// RawExtractor treats the input text as model output that has already been
// produced, e.g. piped from another tool.
type RawExtractor struct{}

// Extract parses req.Text directly.
func (RawExtractor) Extract(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Parse(req.Text), nil
}

// PromptData is rendered into prompts/extract_tasks.md.
type PromptData struct {
	Text  string
	Today string
	Known []KnownTask
}

// RenderPrompt renders the extraction prompt.
func RenderPrompt(data PromptData) (string, error) {
	tmplContent, err := templates.Prompts.ReadFile("prompts/extract_tasks.md")
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}

	tmpl, err := template.New("extract_tasks").Parse(string(tmplContent))
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// chatClient is the subset of *openai.Client used here.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig configures an OpenAIExtractor.
type OpenAIConfig struct {
	APIKey string

	// BaseURL selects an OpenAI-compatible endpoint; empty means OpenAI.
	BaseURL string

	Model       string
	Temperature float32
	Logger      *slog.Logger
}

// OpenAIExtractor asks a chat model to list the tasks in the text.
type OpenAIExtractor struct {
	client      chatClient
	model       string
	temperature float32
	logger      *slog.Logger
	now         func() time.Time
}

// NewOpenAIExtractor creates an extractor backed by the chat completion API.
func NewOpenAIExtractor(cfg OpenAIConfig) *OpenAIExtractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIExtractor{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
		now:         time.Now,
	}
}

// Extract renders the prompt, calls the model and parses its reply.
// API failures become a Failed result.
func (e *OpenAIExtractor) Extract(ctx context.Context, req Request) (Result, error) {
	prompt, err := RenderPrompt(PromptData{
		Text:  req.Text,
		Today: e.now().Format("2006-01-02 (Monday)"),
		Known: req.Known,
	})
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("requesting task extraction", "model", e.model, "known", len(req.Known))
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You extract to-do tasks from conversations and answer with JSON only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: e.temperature,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		e.logger.Warn("task extraction request failed", "model", e.model, "error", err)
		return failed(syncerrors.ErrExtraction("the model request failed").WithCause(err).Error()), nil
	}

	if len(resp.Choices) == 0 {
		return failed("the model returned no choices"), nil
	}
	e.logger.Debug("task extraction response", "finish_reason", resp.Choices[0].FinishReason)

	return Parse(resp.Choices[0].Message.Content), nil
}
