package suggest

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

	"github.com/charmbracelet/log"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultAuthHeader = "x-api-key"
	maxErrorBody      = 512
)

// Client calls a text-generation endpoint that speaks the messages envelope:
// request {"messages":[{"role":"user","content":...}]}, response
// {"content":[{"type":"text","text":...}]}.
type Client struct {
	Endpoint   string
	APIKey     string
	AuthHeader string
	Headers    map[string]string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

type messagesRequest struct {
	Model     string    `json:"model,omitempty"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Recommend sends one request and validates the answer against the roster.
// It never retries; a cancelled ctx abandons the in-flight call.
func (c *Client) Recommend(ctx context.Context, draft TaskDraft, roster []Candidate) (Result, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return Result{}, errors.New("task title is required")
	}
	text, err := c.Complete(ctx, BuildPrompt(draft, roster))
	if err != nil {
		return Result{}, err
	}
	return Validator{Logger: c.logger()}.ParseAndValidate(text, members(roster))
}

// Complete posts a single user prompt and returns the first text block.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.Endpoint) == "" {
		return "", RequestFailedError{Message: "assistant endpoint not configured"}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(messagesRequest{
		Model:     c.Model,
		MaxTokens: c.MaxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", RequestFailedError{Message: "create request: " + err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		header := c.AuthHeader
		if header == "" {
			header = DefaultAuthHeader
		}
		if strings.EqualFold(header, "Authorization") {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		} else {
			req.Header.Set(header, c.APIKey)
		}
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", RequestFailedError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", RequestFailedError{StatusCode: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}
	c.logger().Debug("assistant call finished", "status", resp.StatusCode, "elapsed", time.Since(started), "bytes", len(respBody))

	var decoded messagesResponse
	decodeErr := json.Unmarshal(respBody, &decoded)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", RequestFailedError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", RequestFailedError{StatusCode: resp.StatusCode, Message: "decode response envelope: " + decodeErr.Error(), Err: decodeErr}
	}
	for _, block := range decoded.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", RequestFailedError{StatusCode: resp.StatusCode, Message: "response has no text content"}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}
