package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunWithFallback(t *testing.T) {
	bad := &scripted{replies: []reply{{text: "oops"}}}
	good := &scripted{replies: []reply{{text: "fix: add foo helper"}}}

	primary := New(bad, testConfig(t, "zero_shot", 1))
	fallback := New(good, testConfig(t, "zero_shot", 1))

	res := RunWithFallback(context.Background(), fooDiff, primary, fallback)
	assert.True(t, res.Success)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, "invalid-type", res.PrimaryReason)
	assert.Len(t, bad.reqs, 2)
	assert.Len(t, good.reqs, 1)
}

func TestFallbackSkippedOnSuccess(t *testing.T) {
	good := &scripted{replies: []reply{{text: "fix: add foo helper"}}}
	unused := &scripted{replies: []reply{{text: "fix: other"}}}

	res := RunWithFallback(context.Background(), fooDiff,
		New(good, testConfig(t, "zero_shot", 1)),
		New(unused, testConfig(t, "zero_shot", 1)))
	assert.True(t, res.Success)
	assert.False(t, res.FallbackUsed)
	assert.Empty(t, unused.reqs)
}

func TestFallbackNil(t *testing.T) {
	bad := &scripted{replies: []reply{{text: "oops"}}}
	res := RunWithFallback(context.Background(), fooDiff, New(bad, testConfig(t, "zero_shot", 0)), nil)
	assert.False(t, res.Success)
	assert.False(t, res.FallbackUsed)
}
