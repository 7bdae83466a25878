package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/rihla/internal/domain/generation"
	"github.com/yanqian/rihla/pkg/metrics"
)

const (
	defaultBaseURL   = "https://openrouter.ai/api/v1"
	maxErrorBodySize = 4 << 10
)

// Message mirrors the OpenAI-compatible chat message. Content is either a
// plain string or a list of ContentPart values.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one block of a multimodal user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries a remote URL or a base64 data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// ChatCompletionRequest is the payload sent to the chat completions endpoint.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse captures the non-streaming response.
type ChatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Options configures the client.
type Options struct {
	APIKey   string
	BaseURL  string
	AppURL   string
	AppTitle string
	// HTTPTimeout is a safety net; the gateway deadline normally fires first.
	HTTPTimeout time.Duration
}

// Client performs HTTP requests against OpenRouter.
type Client struct {
	apiKey     string
	baseURL    string
	appURL     string
	appTitle   string
	httpClient *http.Client
}

// NewClient constructs an OpenRouter client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openrouter api key cannot be empty")
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		appURL:     opts.AppURL,
		appTitle:   opts.AppTitle,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Complete implements generation.Provider.
func (c *Client) Complete(ctx context.Context, call generation.ProviderCall) (generation.RawModelResponse, error) {
	out, err := c.CreateChatCompletion(ctx, ChatCompletionRequest{
		Model:       call.Spec.ModelID,
		Messages:    buildMessages(call.Prompt),
		Temperature: call.Spec.Temperature,
		MaxTokens:   call.Spec.MaxOutputTokens,
	})
	if err != nil {
		return generation.RawModelResponse{}, err
	}
	if len(out.Choices) == 0 {
		return generation.RawModelResponse{}, errors.New("openrouter returned no choices")
	}
	choice := out.Choices[0]
	resp := generation.RawModelResponse{
		Text:      choice.Message.Content,
		Truncated: choice.FinishReason == "length",
		Model:     out.Model,
	}
	if out.Usage != nil {
		resp.Usage = metrics.TokenUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// CreateChatCompletion triggers a sync chat completion call.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	var out ChatCompletionResponse
	body, err := c.doRequest(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode chat completion: %w", err)
	}
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, req ChatCompletionRequest) ([]byte, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &generation.StatusError{StatusCode: resp.StatusCode, Body: string(payload)}
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) newHTTPRequest(ctx context.Context, req ChatCompletionRequest) (*http.Request, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat completion request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.appURL != "" {
		httpReq.Header.Set("HTTP-Referer", c.appURL)
	}
	if c.appTitle != "" {
		httpReq.Header.Set("X-Title", c.appTitle)
	}
	return httpReq, nil
}

func buildMessages(p generation.Prompt) []Message {
	messages := make([]Message, 0, len(p.History)+2)
	if p.System != "" {
		messages = append(messages, Message{Role: "system", Content: p.System})
	}
	for _, turn := range p.History {
		messages = append(messages, Message{Role: turn.Role, Content: turn.Content})
	}
	if p.Image == nil {
		return append(messages, Message{Role: "user", Content: p.User})
	}
	return append(messages, Message{
		Role: "user",
		Content: []ContentPart{
			{Type: "image_url", ImageURL: &ImageURL{URL: p.Image.URL}},
			{Type: "text", Text: p.User},
		},
	})
}

var _ generation.Provider = (*Client)(nil)
