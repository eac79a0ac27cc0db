package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	// AnthropicEndpoint is the messages API endpoint.
	AnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	// AnthropicModel is used when no model is configured.
	AnthropicModel = "claude-sonnet-4-20250514"
	// AnthropicVersion is sent as the Anthropic-Version header.
	AnthropicVersion = "2023-06-01"
	// AnthropicMaxTokens caps a single response.
	AnthropicMaxTokens = 4096

	anthropicTimeout = 120 * time.Second
)

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AnthropicClient completes requests through the Anthropic messages API.
type AnthropicClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	endpoint   string
}

// NewAnthropicClient creates a client for the given key. An empty model selects AnthropicModel.
func NewAnthropicClient(apiKey, model string) (client *AnthropicClient) {
	if model == "" {
		model = AnthropicModel
	}
	client = &AnthropicClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   AnthropicEndpoint,
		httpClient: &http.Client{Timeout: anthropicTimeout},
	}
	return client
}

// Complete sends the instruction as the system prompt and the body as the user turn.
// A schema constraint travels in the system prompt; the reply is returned without fences.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (text string, err error) {
	msgReq := messagesRequest{
		Model:     c.model,
		MaxTokens: AnthropicMaxTokens,
		System:    systemText(req),
		Messages:  []chatMessage{{Role: "user", Content: req.Body}},
	}

	text, err = c.sendRequest(ctx, msgReq)
	if err != nil {
		err = errors.Wrap(err, "completion request failed")
		return text, err
	}

	if req.Structured() {
		text = StripCodeFences(text)
	}

	return text, err
}

func (c *AnthropicClient) sendRequest(ctx context.Context, msgReq messagesRequest) (responseText string, err error) {
	var reqBody []byte
	reqBody, err = json.Marshal(msgReq)
	if err != nil {
		err = errors.Wrap(err, "failed to marshal request")
		return responseText, err
	}

	var httpReq *http.Request
	httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		err = errors.Wrap(err, "failed to create HTTP request")
		return responseText, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", AnthropicVersion)

	var resp *http.Response
	resp, err = c.httpClient.Do(httpReq)
	if err != nil {
		err = errors.Wrap(err, "HTTP request failed")
		return responseText, err
	}
	defer resp.Body.Close()

	var respBody []byte
	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		err = errors.Wrap(err, "failed to read response body")
		return responseText, err
	}

	if resp.StatusCode != http.StatusOK {
		err = &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
		return responseText, err
	}

	var msgResp messagesResponse
	err = json.Unmarshal(respBody, &msgResp)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse messages response: %s", string(respBody))
		return responseText, err
	}

	// Concatenate text blocks; other block types carry nothing we can use.
	for _, block := range msgResp.Content {
		if block.Type == "" || block.Type == "text" {
			responseText += block.Text
		}
	}

	if responseText == "" {
		err = errors.New("no text in messages response")
		return responseText, err
	}

	return responseText, err
}
