// Package session drives a pipeline run one transition at a time and keeps the run state that
// survives between requests.
package session

import (
	"encoding/json"
	"time"

	"github.com/nikogura/jobdocs/pkg/store"
	"github.com/pkg/errors"
)

// StateVersion is the serialization version written by Encode.
const StateVersion = 1

// Status is the lifecycle phase of a run.
type Status string

const (
	// StatusInProgress means steps remain to be run.
	StatusInProgress Status = "in_progress"
	// StatusCompleted means every step has run; alternatives of the last step can still be browsed.
	StatusCompleted Status = "completed"
	// StatusFinished means the run was closed and its state should be discarded.
	StatusFinished Status = "finished"
)

// State is everything a run needs between transitions.
type State struct {
	Version          int           `json:"version"`
	ID               string        `json:"id"`
	Status           Status        `json:"status"`
	CurrentStep      int           `json:"current_step"`
	Store            store.Store   `json:"store"`
	Alternatives     []store.Value `json:"alternatives"`
	AlternativeIndex int           `json:"alternative_index"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Clone returns a deep copy so a transition can be computed without touching the original.
func (s *State) Clone() (c *State) {
	c = &State{
		Version:          s.Version,
		ID:               s.ID,
		Status:           s.Status,
		CurrentStep:      s.CurrentStep,
		Store:            s.Store.Clone(),
		AlternativeIndex: s.AlternativeIndex,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.Alternatives != nil {
		c.Alternatives = make([]store.Value, len(s.Alternatives))
		for i, alt := range s.Alternatives {
			c.Alternatives[i] = alt.Clone()
		}
	}
	return c
}

// Encode serializes the state.
func Encode(st *State) (data []byte, err error) {
	if st == nil {
		err = errors.New("cannot encode nil session state")
		return data, err
	}

	data, err = json.Marshal(st)
	if err != nil {
		err = errors.Wrap(err, "failed to encode session state")
		return data, err
	}

	return data, err
}

// Decode parses serialized state and rejects versions it does not understand.
func Decode(data []byte) (st *State, err error) {
	st = &State{}
	err = json.Unmarshal(data, st)
	if err != nil {
		err = errors.Wrap(err, "failed to decode session state")
		return nil, err
	}

	if st.Version != StateVersion {
		err = errors.Errorf("unsupported session state version %d", st.Version)
		return nil, err
	}

	switch st.Status {
	case StatusInProgress, StatusCompleted, StatusFinished:
	default:
		err = errors.Errorf("unknown session state status %q", st.Status)
		return nil, err
	}

	if st.CurrentStep < 0 {
		err = errors.Errorf("session state step %d is negative", st.CurrentStep)
		return nil, err
	}

	if st.Store == nil {
		st.Store = store.New()
	}

	if len(st.Alternatives) > 0 && (st.AlternativeIndex < 0 || st.AlternativeIndex >= len(st.Alternatives)) {
		err = errors.Errorf("session state alternative index %d out of range [0,%d)", st.AlternativeIndex, len(st.Alternatives))
		return nil, err
	}

	return st, err
}
