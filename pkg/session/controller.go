package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nikogura/jobdocs/pkg/loader"
	"github.com/nikogura/jobdocs/pkg/prompt"
	"github.com/nikogura/jobdocs/pkg/store"
)

// Bound names the end of the alternative list a browse ran into.
type Bound string

const (
	// BoundNone means the transition did not fail on a browse bound.
	BoundNone Bound = ""
	// BoundLeft is the first alternative.
	BoundLeft Bound = "left"
	// BoundRight is the newest alternative.
	BoundRight Bound = "right"
)

// InvalidTransitionError reports a transition the current state does not allow.
type InvalidTransitionError struct {
	Op     string
	Reason string
	Bound  Bound
}

func (e *InvalidTransitionError) Error() (msg string) {
	msg = fmt.Sprintf("invalid transition %s: %s", e.Op, e.Reason)
	return msg
}

// StepRunner runs one step against a store, publishing the output under the step name on
// success and leaving the store alone on failure.
type StepRunner interface {
	Execute(ctx context.Context, p prompt.Prompt, s store.Store) (output store.Value, err error)
}

// Controller applies transitions to run state for one pipeline.
type Controller struct {
	pipeline  loader.Pipeline
	runner    StepRunner
	finalStep string
	now       func() time.Time
}

// ControllerOption configures a Controller.
type ControllerOption func(c *Controller)

// WithFinalStep picks the step whose output Finish returns. The default is the last step.
func WithFinalStep(name string) (opt ControllerOption) {
	opt = func(c *Controller) {
		c.finalStep = name
	}
	return opt
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) (opt ControllerOption) {
	opt = func(c *Controller) {
		c.now = now
	}
	return opt
}

// NewController creates a controller for pipeline, running steps with runner.
func NewController(pipeline loader.Pipeline, runner StepRunner, opts ...ControllerOption) (c *Controller) {
	c = &Controller{
		pipeline: pipeline,
		runner:   runner,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pipeline returns the pipeline the controller drives.
func (c *Controller) Pipeline() (pipeline loader.Pipeline) {
	pipeline = c.pipeline
	return pipeline
}

// Start opens a run. The store holds the pipeline's inputs overlaid with inputs. A previous
// state must be absent or finished.
func (c *Controller) Start(prev *State, inputs store.Store) (st *State, err error) {
	if prev != nil && prev.Status != StatusFinished {
		err = &InvalidTransitionError{Op: "start", Reason: "a run is already active"}
		return st, err
	}

	seeded := c.pipeline.Inputs.Clone()
	seeded.Merge(inputs)

	now := c.now()
	st = &State{
		Version:     StateVersion,
		ID:          uuid.NewString(),
		Status:      StatusInProgress,
		CurrentStep: 0,
		Store:       seeded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.pipeline.Len() == 0 {
		st.Status = StatusCompleted
	}

	return st, err
}

// Advance runs the current step. On success alternatives restart with the new output and the
// step moves forward. On failure st is unchanged.
func (c *Controller) Advance(ctx context.Context, st *State) (output store.Value, err error) {
	err = c.check("advance", st)
	if err != nil {
		return output, err
	}

	if st.Status != StatusInProgress || st.CurrentStep >= c.pipeline.Len() {
		err = &InvalidTransitionError{Op: "advance", Reason: fmt.Sprintf("run is %s", st.Status)}
		return output, err
	}

	p := c.pipeline.Prompts[st.CurrentStep]
	working := st.Store.Clone()

	output, err = c.runner.Execute(ctx, p, working)
	if err != nil {
		return output, err
	}

	st.Store = working
	st.Alternatives = []store.Value{output}
	st.AlternativeIndex = 0
	st.CurrentStep++
	if st.CurrentStep == c.pipeline.Len() {
		st.Status = StatusCompleted
	}
	st.UpdatedAt = c.now()

	return output, err
}

// Retry regenerates the step just completed and appends the result as a new alternative.
// The step index ends where it started.
func (c *Controller) Retry(ctx context.Context, st *State) (output store.Value, err error) {
	err = c.check("retry", st)
	if err != nil {
		return output, err
	}

	if st.CurrentStep == 0 {
		err = &InvalidTransitionError{Op: "retry", Reason: "no step has completed yet"}
		return output, err
	}

	p := c.pipeline.Prompts[st.CurrentStep-1]
	working := st.Store.Clone()

	output, err = c.runner.Execute(ctx, p, working)
	if err != nil {
		return output, err
	}

	st.Store = working
	st.Alternatives = append(st.Alternatives, output)
	st.AlternativeIndex = len(st.Alternatives) - 1
	st.UpdatedAt = c.now()

	return output, err
}

// BrowseLeft selects the previous alternative and republishes it to the store.
func (c *Controller) BrowseLeft(st *State) (selected store.Value, err error) {
	selected, err = c.browse("browse_left", st, -1)
	return selected, err
}

// BrowseRight selects the next alternative and republishes it to the store.
func (c *Controller) BrowseRight(st *State) (selected store.Value, err error) {
	selected, err = c.browse("browse_right", st, 1)
	return selected, err
}

func (c *Controller) browse(op string, st *State, delta int) (selected store.Value, err error) {
	err = c.check(op, st)
	if err != nil {
		return selected, err
	}

	if len(st.Alternatives) == 0 || st.CurrentStep == 0 {
		err = &InvalidTransitionError{Op: op, Reason: "no alternatives to browse"}
		return selected, err
	}

	target := st.AlternativeIndex + delta
	if target < 0 {
		err = &InvalidTransitionError{Op: op, Reason: "already at the first alternative", Bound: BoundLeft}
		return selected, err
	}
	if target >= len(st.Alternatives) {
		err = &InvalidTransitionError{Op: op, Reason: "already at the newest alternative", Bound: BoundRight}
		return selected, err
	}

	selected = st.Alternatives[target]
	st.AlternativeIndex = target
	st.Store.Set(c.pipeline.Prompts[st.CurrentStep-1].Name, selected.Clone())
	st.UpdatedAt = c.now()

	return selected, err
}

// Finish closes a completed run and returns the final step's output. The caller discards
// the persisted state afterwards.
func (c *Controller) Finish(st *State) (final store.Value, err error) {
	err = c.check("finish", st)
	if err != nil {
		return final, err
	}

	if st.Status != StatusCompleted {
		err = &InvalidTransitionError{Op: "finish", Reason: fmt.Sprintf("run is %s", st.Status)}
		return final, err
	}

	final, err = c.FinalOutput(st)
	if err != nil {
		return final, err
	}

	st.Status = StatusFinished
	st.UpdatedAt = c.now()

	return final, err
}

// FinalOutput returns the value of the final step without changing the run.
func (c *Controller) FinalOutput(st *State) (final store.Value, err error) {
	name := c.finalStep
	if name == "" {
		if c.pipeline.Len() == 0 {
			err = &InvalidTransitionError{Op: "finish", Reason: "pipeline has no steps"}
			return final, err
		}
		name = c.pipeline.Prompts[c.pipeline.Len()-1].Name
	}

	var ok bool
	final, ok = st.Store.Get(name)
	if !ok {
		err = &InvalidTransitionError{Op: "finish", Reason: fmt.Sprintf("step %q has no output", name)}
		return final, err
	}

	return final, err
}

// check rejects transitions on absent or closed runs, and on runs whose step index does not fit
// the pipeline, which happens when persisted state outlives a pipeline change.
func (c *Controller) check(op string, st *State) (err error) {
	if st == nil {
		err = &InvalidTransitionError{Op: op, Reason: "no run is active"}
		return err
	}
	if st.CurrentStep < 0 || st.CurrentStep > c.pipeline.Len() {
		err = &InvalidTransitionError{Op: op, Reason: fmt.Sprintf("run state does not match pipeline: step %d of %d", st.CurrentStep, c.pipeline.Len())}
		return err
	}
	if st.Status == StatusFinished {
		err = &InvalidTransitionError{Op: op, Reason: "run is finished"}
		return err
	}
	return err
}
