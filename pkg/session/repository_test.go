package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nikogura/jobdocs/pkg/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState(t *testing.T) (st *State) {
	t.Helper()

	structured, err := store.Parse([]byte(`{"skills": ["go", "sql"], "years": 7}`))
	require.NoError(t, err)

	st = &State{
		Version:     StateVersion,
		ID:          "s-1",
		Status:      StatusInProgress,
		CurrentStep: 1,
		Store: store.Store{
			"job_description": store.Text("Build <things>"),
			"extract_skills":  structured,
		},
		Alternatives:     []store.Value{structured, store.Text("older")},
		AlternativeIndex: 1,
		CreatedAt:        time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC),
	}
	return st
}

func TestEncodeDecode(t *testing.T) {
	st := sampleState(t)

	data, err := Encode(st)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, st.ID, decoded.ID)
	assert.Equal(t, st.Status, decoded.Status)
	assert.Equal(t, st.CurrentStep, decoded.CurrentStep)
	assert.Equal(t, st.AlternativeIndex, decoded.AlternativeIndex)
	assert.True(t, st.CreatedAt.Equal(decoded.CreatedAt))

	skills, _ := decoded.Store.Get("extract_skills")
	assert.True(t, skills.Equal(st.Store["extract_skills"]))

	text, _ := decoded.Store.Get("job_description")
	assert.Equal(t, "Build <things>", text.String())

	require.Len(t, decoded.Alternatives, 2)
	assert.Equal(t, "older", decoded.Alternatives[1].String())
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown version", data: `{"version": 2, "status": "in_progress"}`},
		{name: "missing version", data: `{"status": "in_progress"}`},
		{name: "index out of range", data: `{"version": 1, "status": "completed", "current_step": 1, "alternatives": ["a"], "alternative_index": 3}`},
		{name: "negative step", data: `{"version": 1, "status": "in_progress", "current_step": -1}`},
		{name: "unknown status", data: `{"version": 1, "status": "paused", "current_step": 0}`},
		{name: "missing status", data: `{"version": 1, "current_step": 0}`},
		{name: "not json", data: `version=1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)

	st := sampleState(t)
	require.NoError(t, repo.Put(ctx, st.ID, st))

	got, err := repo.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.CurrentStep, got.CurrentStep)

	// Callers mutate their own copy, not the stored one.
	got.CurrentStep = 99
	again, err := repo.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.CurrentStep)

	require.NoError(t, repo.Delete(ctx, st.ID))
	_, err = repo.Get(ctx, st.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestRedisRepository(t *testing.T) {
	addr := os.Getenv("JOBDOCS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("JOBDOCS_TEST_REDIS_ADDR not set")
	}

	repo, err := NewRedisRepository(context.Background(), addr, time.Minute)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	exerciseRepository(t, repo)
}
