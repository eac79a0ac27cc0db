// Package executor runs one pipeline step: expand the template, call the completion service,
// check the answer, and publish it to the store under the step's name.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nikogura/jobdocs/pkg/llm"
	"github.com/nikogura/jobdocs/pkg/logger"
	"github.com/nikogura/jobdocs/pkg/placeholder"
	"github.com/nikogura/jobdocs/pkg/prompt"
	"github.com/nikogura/jobdocs/pkg/store"
	"github.com/pkg/errors"
)

// TemplateUnresolvedError reports a template that could not be fully expanded.
type TemplateUnresolvedError struct {
	Step string
	Err  error
}

func (e *TemplateUnresolvedError) Error() (msg string) {
	msg = fmt.Sprintf("step %q: template unresolved: %v", e.Step, e.Err)
	return msg
}

func (e *TemplateUnresolvedError) Unwrap() (err error) {
	err = e.Err
	return err
}

// ServiceError reports a failed completion call.
type ServiceError struct {
	Step string
	Err  error
}

func (e *ServiceError) Error() (msg string) {
	msg = fmt.Sprintf("step %q: completion service failed: %v", e.Step, e.Err)
	return msg
}

func (e *ServiceError) Unwrap() (err error) {
	err = e.Err
	return err
}

// MalformedResponseError reports structured output that is not JSON or violates the schema.
type MalformedResponseError struct {
	Step     string
	Response string
	Err      error
}

func (e *MalformedResponseError) Error() (msg string) {
	msg = fmt.Sprintf("step %q: malformed response: %v", e.Step, e.Err)
	return msg
}

func (e *MalformedResponseError) Unwrap() (err error) {
	err = e.Err
	return err
}

// ContinueFunc decides whether expansion may keep going after the pass limit was hit.
// Returning true grants another round of passes starting from the partial text.
type ContinueFunc func(ctx context.Context, step string, unresolved *placeholder.UnresolvedError) (proceed bool)

// Observer receives the expanded body and the output of each successful step.
type Observer func(step string, body string, output store.Value)

// Executor runs pipeline steps against a completion service.
type Executor struct {
	completer     llm.Completer
	maxIterations int
	log           *logger.Logger
	continueFn    ContinueFunc
	observer      Observer
}

// Option configures an Executor.
type Option func(e *Executor)

// WithMaxIterations sets the expansion pass limit.
func WithMaxIterations(n int) (opt Option) {
	opt = func(e *Executor) {
		e.maxIterations = n
	}
	return opt
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) (opt Option) {
	opt = func(e *Executor) {
		e.log = log
	}
	return opt
}

// WithContinue lets an operator extend expansion past the pass limit.
func WithContinue(fn ContinueFunc) (opt Option) {
	opt = func(e *Executor) {
		e.continueFn = fn
	}
	return opt
}

// WithObserver reports each step's expanded input and output.
func WithObserver(fn Observer) (opt Option) {
	opt = func(e *Executor) {
		e.observer = fn
	}
	return opt
}

// New creates an executor.
func New(completer llm.Completer, opts ...Option) (e *Executor) {
	e = &Executor{
		completer:     completer,
		maxIterations: placeholder.DefaultMaxIterations,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs p against s. On success the output is stored under p.Name and returned.
// On failure s is left untouched.
func (e *Executor) Execute(ctx context.Context, p prompt.Prompt, s store.Store) (output store.Value, err error) {
	start := time.Now()
	log := e.log.With("step", p.Name, "structured", p.Structured())

	var body string
	body, err = e.expand(ctx, p, s)
	if err != nil {
		log.Warn("step template unresolved", "error", err.Error())
		return output, err
	}

	req := llm.Request{
		Instruction: p.Instruction,
		Body:        body,
	}
	if p.Structured() {
		req.Schema = p.Schema.Raw
		req.SchemaName = p.Name
	}

	var text string
	text, err = e.completer.Complete(ctx, req)
	if err != nil {
		err = &ServiceError{Step: p.Name, Err: err}
		log.Error("step completion failed", "error", err.Error(), "latency_ms", time.Since(start).Milliseconds())
		return output, err
	}

	output, err = decode(p, text)
	if err != nil {
		log.Warn("step response rejected", "error", err.Error(), "latency_ms", time.Since(start).Milliseconds())
		return output, err
	}

	s.Set(p.Name, output)

	if e.observer != nil {
		e.observer(p.Name, body, output)
	}

	log.Info("step completed", "latency_ms", time.Since(start).Milliseconds())
	return output, err
}

// expand runs the expansion loop, asking the continue hook for more passes when allowed.
func (e *Executor) expand(ctx context.Context, p prompt.Prompt, s store.Store) (body string, err error) {
	body = p.Template
	for {
		body, err = placeholder.Expand(body, s, e.maxIterations)
		if err == nil {
			return body, err
		}

		var unresolved *placeholder.UnresolvedError
		if !errors.As(err, &unresolved) || e.continueFn == nil || !e.continueFn(ctx, p.Name, unresolved) {
			err = &TemplateUnresolvedError{Step: p.Name, Err: err}
			return body, err
		}

		if ctx.Err() != nil {
			err = &TemplateUnresolvedError{Step: p.Name, Err: ctx.Err()}
			return body, err
		}

		e.log.Debug("continuing expansion", "step", p.Name, "passes", unresolved.Passes)
		body = unresolved.Partial
	}
}

// decode turns the raw response into the value stored for the step.
func decode(p prompt.Prompt, text string) (output store.Value, err error) {
	if !p.Structured() {
		output = store.Text(strings.TrimSpace(text))
		return output, err
	}

	cleaned := llm.StripCodeFences(text)

	err = p.Schema.Validate([]byte(cleaned))
	if err != nil {
		err = &MalformedResponseError{Step: p.Name, Response: text, Err: err}
		return output, err
	}

	var parsed store.Value
	parsed, err = store.Parse([]byte(cleaned))
	if err != nil {
		err = &MalformedResponseError{Step: p.Name, Response: text, Err: err}
		return output, err
	}

	output = parsed.Without(store.ReasonKey)
	return output, err
}
