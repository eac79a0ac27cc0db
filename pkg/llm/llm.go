// Package llm talks to text-completion services. Callers see one operation: send an optional
// instruction plus a user body, optionally constrained to a JSON schema, and get text back.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// ProviderOpenAI selects the OpenAI chat completions API.
	ProviderOpenAI = "openai"
	// ProviderAnthropic selects the Anthropic messages API.
	ProviderAnthropic = "anthropic"
)

// Request is one completion call.
type Request struct {
	// Instruction is the fixed system-level guidance. May be empty.
	Instruction string
	// Body is the expanded template sent as the user turn.
	Body string
	// Schema, when set, asks for a JSON response conforming to it.
	Schema json.RawMessage
	// SchemaName labels the schema for providers that want one.
	SchemaName string
}

// Structured reports whether the request asks for schema-constrained output.
func (r Request) Structured() (ok bool) {
	ok = len(r.Schema) > 0
	return ok
}

// Completer is the completion service boundary.
type Completer interface {
	Complete(ctx context.Context, req Request) (text string, err error)
}

// StatusError is a non-success HTTP answer from a completion service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() (msg string) {
	msg = fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
	return msg
}

// Auth reports whether the service rejected the credentials.
func (e *StatusError) Auth() (ok bool) {
	ok = e.StatusCode == 401 || e.StatusCode == 403
	return ok
}

// Settings selects and configures a provider.
type Settings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New builds the Completer for the configured provider. An empty provider means OpenAI.
func New(settings Settings) (completer Completer, err error) {
	if settings.APIKey == "" {
		err = errors.New("API key is required")
		return completer, err
	}

	switch strings.ToLower(settings.Provider) {
	case "", ProviderOpenAI:
		completer, err = NewOpenAIClient(settings.APIKey, settings.Model, settings.BaseURL)
	case ProviderAnthropic:
		client := NewAnthropicClient(settings.APIKey, settings.Model)
		if settings.BaseURL != "" {
			client.endpoint = settings.BaseURL
		}
		completer = client
	default:
		err = errors.Errorf("unknown provider %q (expected %q or %q)", settings.Provider, ProviderOpenAI, ProviderAnthropic)
	}

	return completer, err
}

// systemText joins the instruction with the schema constraint for providers that take the
// schema as part of the system turn.
func systemText(req Request) (text string) {
	text = req.Instruction
	if !req.Structured() {
		return text
	}

	constraint := fmt.Sprintf("Respond only with a single JSON object that conforms to this JSON schema, with no commentary and no markdown:\n%s", string(req.Schema))
	if text == "" {
		text = constraint
		return text
	}

	text = text + "\n\n" + constraint
	return text
}

// StripCodeFences removes a markdown code fence wrapped around a JSON response.
func StripCodeFences(text string) (cleaned string) {
	cleaned = strings.TrimSpace(text)

	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	// Drop the opening fence line, with or without a language tag.
	newline := strings.IndexByte(cleaned, '\n')
	if newline == -1 {
		return cleaned
	}
	cleaned = cleaned[newline+1:]

	cleaned = strings.TrimRight(cleaned, " \r\n")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimRight(cleaned, " \r\n")

	return cleaned
}
