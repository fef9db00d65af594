package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghonghuy/commitlab/internal/conventional"
	"github.com/hoanghonghuy/commitlab/internal/engine"
)

func TestAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval", "runs.jsonl")
	w, err := Open(path)
	require.NoError(t, err)

	recs := []Record{
		{ID: "1", Provider: "ollama", Model: "llama3", Strategy: "zero_shot", Success: true, Message: "fix: a", LatencyMs: 900},
		{ID: "2", Provider: "ollama", Model: "llama3", Strategy: "zero_shot", Reason: "invalid-type", Retries: 3, RetryBound: 3, LatencyMs: 1200},
	}
	for _, r := range recs {
		require.NoError(t, w.Append(r))
	}
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, SchemaVersion, got[0].SchemaVersion)
	assert.Equal(t, "fix: a", got[0].Message)
	assert.Equal(t, "invalid-type", got[1].Reason)

	// reopening appends instead of truncating
	w, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{ID: "3"}))
	require.NoError(t, w.Close())

	got, err = ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestAppendAfterClose(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "runs.jsonl"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Error(t, w.Append(Record{}))
	assert.NoError(t, w.Close())
}

func TestConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	w, err := Open(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Append(Record{ID: fmt.Sprint(i), Message: strings.Repeat("x", 2048)}))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 50)
}

func TestReadTolerance(t *testing.T) {
	in := strings.Join([]string{
		`{"schema_version":"1.0","id":"a","provider":"groq","success":true,"future_field":{"x":1}}`,
		``,
		`{"schema_version":"1.1","id":"b","provider":"groq","success":false,"reason":"timeout"}`,
		`{"schema_version":"1.0","id":"c","prov`,
	}, "\n")

	got, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "timeout", got[1].Reason)
}

func TestReadCorruptMiddleLine(t *testing.T) {
	in := "{\"id\":\"a\"}\nnot json\n{\"id\":\"b\"}\n"
	_, err := Read(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadFileMissing(t *testing.T) {
	got, err := ReadFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenFailsOnDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "runs.jsonl"), 0755))
	_, err := Open(filepath.Join(dir, "runs.jsonl"))
	assert.Error(t, err)
}

func TestNewRecord(t *testing.T) {
	v := conventional.Validator{}.Validate("fix: add foo helper")
	res := engine.Result{
		Success:   true,
		Message:   v.Message,
		Verdict:   v,
		Retries:   1,
		LatencyMs: 420,
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	l := engine.Labels{Provider: "openai", Model: "gpt-4o-mini", Strategy: "structured"}

	rec := NewRecord("exp-1", l, 3, engine.DiffInput{ID: "foo"}, res, now)
	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, "exp-1", rec.ExperimentID)
	assert.Equal(t, "foo", rec.DiffID)
	assert.Equal(t, "openai", rec.Provider)
	assert.Equal(t, 3, rec.RetryBound)
	assert.Equal(t, 3, rec.Words)
	assert.Equal(t, now.UTC(), rec.Timestamp)

	id, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}
