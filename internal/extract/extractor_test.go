package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChat returns a canned completion and records the request.
type fakeChat struct {
	content string
	err     error
	noReply bool
	got     openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.got = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if f.noReply {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content},
			FinishReason: openai.FinishReasonStop,
		}},
	}, nil
}

func newTestExtractor(client chatClient) *OpenAIExtractor {
	return &OpenAIExtractor{
		client: client,
		model:  "test-model",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRawExtractor(t *testing.T) {
	res, err := RawExtractor{}.Extract(context.Background(), Request{Text: `[{"taskid": "1", "title": "a"}]`})
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RawExtractor{}.Extract(ctx, Request{Text: "[]"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := RenderPrompt(PromptData{
		Text:  "I bought groceries and need to call dad",
		Today: "2026-10-19 (Monday)",
		Known: []KnownTask{{ID: "groceries", Description: "buy groceries"}},
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "I bought groceries and need to call dad")
	assert.Contains(t, prompt, "2026-10-19 (Monday)")
	assert.Contains(t, prompt, "`groceries`: buy groceries")
}

func TestRenderPrompt_NoKnownTasks(t *testing.T) {
	prompt, err := RenderPrompt(PromptData{Text: "hello", Today: "2026-10-19"})
	require.NoError(t, err)
	assert.NotContains(t, prompt, "already being tracked")
}

func TestOpenAIExtractor_ParsesReply(t *testing.T) {
	fake := &fakeChat{content: "```json\n[{\"taskid\": \"call-dad\", \"title\": \"Call dad\", \"description\": \"call dad\"}]\n```"}
	e := newTestExtractor(fake)

	res, err := e.Extract(context.Background(), Request{Text: "I need to call dad"})
	require.NoError(t, err)
	require.False(t, res.Failed)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "call-dad", res.Candidates[0].ID)

	assert.Equal(t, "test-model", fake.got.Model)
	require.Len(t, fake.got.Messages, 2)
	assert.Contains(t, fake.got.Messages[1].Content, "I need to call dad")
	assert.Contains(t, fake.got.Messages[1].Content, "2026-10-19")
}

func TestOpenAIExtractor_APIErrorIsFailedResult(t *testing.T) {
	e := newTestExtractor(&fakeChat{err: errors.New("503 service unavailable")})

	res, err := e.Extract(context.Background(), Request{Text: "anything"})
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Contains(t, res.Diagnostic, "503")
}

func TestOpenAIExtractor_NoChoicesIsFailedResult(t *testing.T) {
	e := newTestExtractor(&fakeChat{noReply: true})

	res, err := e.Extract(context.Background(), Request{Text: "anything"})
	require.NoError(t, err)
	assert.True(t, res.Failed)
}

func TestOpenAIExtractor_CancellationIsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newTestExtractor(&fakeChat{err: context.Canceled})

	_, err := e.Extract(ctx, Request{Text: "anything"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenAIExtractor_CompatibleEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: `[{"taskid": "1", "title": "Groceries", "description": "buy milk"}]`,
				},
			}},
		})
	}))
	defer server.Close()

	e := NewOpenAIExtractor(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "llama3",
	})

	res, err := e.Extract(context.Background(), Request{Text: "buy milk"})
	require.NoError(t, err)
	require.False(t, res.Failed, res.Diagnostic)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Groceries", res.Candidates[0].Title)
}
