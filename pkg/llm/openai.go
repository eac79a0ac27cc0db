package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIModel is the default chat model.
const OpenAIModel = "gpt-4o"

//nolint:gochecknoglobals // compiled once
var schemaNamePattern = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// OpenAIClient completes requests through a langchaingo chat model. Schema-bearing requests go
// through a model configured with that schema as a json_schema response format; langchaingo sets
// the response format per model, so one model is kept per schema.
type OpenAIClient struct {
	model    llms.Model
	newModel func(format *openai.ResponseFormat) (llms.Model, error)

	mu         sync.Mutex
	structured map[string]llms.Model
}

// NewOpenAIClient creates an OpenAI-backed client. baseURL may point at any compatible API.
func NewOpenAIClient(apiKey, model, baseURL string) (client *OpenAIClient, err error) {
	if model == "" {
		model = OpenAIModel
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	var llm *openai.LLM
	llm, err = openai.New(opts...)
	if err != nil {
		err = errors.Wrap(err, "failed to create OpenAI model")
		return client, err
	}

	client = NewModelClient(llm)
	client.newModel = func(format *openai.ResponseFormat) (model llms.Model, err error) {
		structuredOpts := make([]openai.Option, 0, len(opts)+1)
		structuredOpts = append(structuredOpts, opts...)
		structuredOpts = append(structuredOpts, openai.WithResponseFormat(format))
		model, err = openai.New(structuredOpts...)
		return model, err
	}
	return client, err
}

// NewModelClient wraps an already configured langchaingo model.
func NewModelClient(model llms.Model) (client *OpenAIClient) {
	client = &OpenAIClient{model: model, structured: map[string]llms.Model{}}
	return client
}

// ResponseFormat converts a request schema into an OpenAI json_schema response format. Schemas
// that do not fit the structured-output subset report ok false. Strict mode is only requested
// when every object lists all of its properties as required.
func ResponseFormat(req Request) (format *openai.ResponseFormat, ok bool) {
	if !req.Structured() {
		return format, ok
	}

	var schema openai.ResponseFormatJSONSchemaProperty
	err := json.Unmarshal(req.Schema, &schema)
	if err != nil || schema.Type != "object" {
		return format, ok
	}

	name := schemaNamePattern.ReplaceAllString(req.SchemaName, "_")
	if name == "" {
		name = "response"
	}

	format = &openai.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &openai.ResponseFormatJSONSchema{
			Name:   name,
			Strict: strictCompatible(&schema),
			Schema: &schema,
		},
	}
	ok = true
	return format, ok
}

func strictCompatible(schema *openai.ResponseFormatJSONSchemaProperty) (ok bool) {
	if schema == nil {
		ok = true
		return ok
	}

	if schema.Type == "object" {
		required := make(map[string]bool, len(schema.Required))
		for _, name := range schema.Required {
			required[name] = true
		}
		for name, prop := range schema.Properties {
			if !required[name] || !strictCompatible(prop) {
				return ok
			}
		}
	}

	ok = strictCompatible(schema.Items)
	return ok
}

// modelFor returns the model a request should go to and whether JSON mode is still needed.
func (c *OpenAIClient) modelFor(req Request) (model llms.Model, jsonMode bool, err error) {
	model = c.model
	if !req.Structured() {
		return model, jsonMode, err
	}

	format, ok := ResponseFormat(req)
	if !ok || c.newModel == nil {
		jsonMode = true
		return model, jsonMode, err
	}

	key := format.JSONSchema.Name + "\x00" + string(req.Schema)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, found := c.structured[key]; found {
		model = cached
		return model, jsonMode, err
	}

	model, err = c.newModel(format)
	if err != nil {
		err = errors.Wrapf(err, "failed to create structured model for %s", format.JSONSchema.Name)
		return model, jsonMode, err
	}
	c.structured[key] = model

	return model, jsonMode, err
}

// Complete sends the instruction as the system turn and the body as the human turn. With a
// schema the model answers through a json_schema response format, or in JSON mode when the
// schema does not fit that format; the schema is repeated in the system turn either way.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (text string, err error) {
	var messages []llms.MessageContent

	system := systemText(req)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Body))

	var model llms.Model
	var jsonMode bool
	model, jsonMode, err = c.modelFor(req)
	if err != nil {
		return text, err
	}

	var opts []llms.CallOption
	if jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	var resp *llms.ContentResponse
	resp, err = model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		err = errors.Wrap(err, "completion request failed")
		return text, err
	}

	if resp == nil || len(resp.Choices) == 0 {
		err = errors.New("no choices in completion response")
		return text, err
	}

	text = resp.Choices[0].Content
	if req.Structured() {
		text = StripCodeFences(text)
	}

	return text, err
}
