// Package llmclient talks to a single external language-model provider:
// an HTTPS JSON request/response asked to return exactly one line of text.
// The response is always treated as untrusted input by the caller.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/d4ncer/gitalky/internal/gitalkyerrors"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 10 * time.Second

// DefaultBaseURL is Anthropic's Messages API.
const DefaultBaseURL = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

// systemPrompt instructs the model to return exactly one line containing a
// single git command, with no prose, no code fences, and to resolve fuzzy
// filenames against the file lists in the provided context.
const systemPrompt = `You translate a user's natural-language request about a git repository into exactly one git command.

Rules:
- Respond with exactly one line containing a single git command and nothing else.
- Do not wrap the command in a code fence or quotation marks.
- Do not explain your reasoning or add any prose before or after the command.
- Resolve fuzzy file references (e.g. "the input file") against the file paths listed in the repository context.
- If the request cannot be expressed as a single git command, respond with the closest reasonable single command anyway; the caller validates the result.`

// Client calls an Anthropic-compatible Messages endpoint.
type Client struct {
	BaseURL string
	Model   string
	APIKey  string
	HTTP    *http.Client
}

// New returns a Client for model using apiKey, with DefaultBaseURL and
// DefaultTimeout.
func New(model, apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		Model:   model,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
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

// Translate sends query plus repoContext to the model and returns its raw
// reply text, untrimmed and unvalidated; the caller (internal/translator)
// owns output validation.
func (c *Client) Translate(ctx context.Context, query, repoContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	body := messagesRequest{
		Model:     c.Model,
		MaxTokens: 256,
		System:    systemPrompt,
		Messages: []message{
			{Role: "user", Content: "Repository context:\n" + repoContext + "\n\nRequest: " + query},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", gitalkyerrors.Wrap(gitalkyerrors.KindTranslation, "llmclient.Translate", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", gitalkyerrors.Wrap(gitalkyerrors.KindTranslation, "llmclient.Translate", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", gitalkyerrors.Wrap(gitalkyerrors.KindTranslation, "llmclient.Translate", gitalkyerrors.ErrLLMTimeout)
		}
		return "", gitalkyerrors.Wrap(gitalkyerrors.KindTranslation, "llmclient.Translate", gitalkyerrors.ErrLLMNetwork)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", gitalkyerrors.Wrap(gitalkyerrors.KindTranslation, "llmclient.Translate", gitalkyerrors.ErrLLMAPI)
	}

	if resp.StatusCode != http.StatusOK {
		reason := resp.Status
		if parsed.Error != nil {
			reason = parsed.Error.Message
		}
		return "", gitalkyerrors.Wrap(gitalkyerrors.KindTranslation, "llmclient.Translate", fmt.Errorf("%w: %s", gitalkyerrors.ErrLLMAPI, reason))
	}

	if len(parsed.Content) == 0 {
		return "", gitalkyerrors.Wrap(gitalkyerrors.KindTranslation, "llmclient.Translate", gitalkyerrors.ErrLLMAPI)
	}
	return parsed.Content[0].Text, nil
}

// Reachable probes the endpoint with a short timeout to decide between
// Normal and Offline mode. It does not consume a rate-limit slot.
func (c *Client) Reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.BaseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return true
}
