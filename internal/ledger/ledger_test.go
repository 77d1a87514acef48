// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citereview/pkg/types"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestEmptyLedger(t *testing.T) {
	s, _ := openStore(t)
	_, ok, err := s.LastRun(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	msg, err := s.LastError(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, msg)
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	run, err := s.BeginRun(ctx, []string{"acquire", "classify"})
	require.NoError(t, err)

	state := types.ItemState{Slug: "Seed_Paper", Title: "Seed Paper", Status: types.StatusAcquired, Documents: 3}
	require.NoError(t, s.RecordTransition(ctx, run.ID, Transition{Slug: "Seed_Paper", From: types.StatusNew, To: types.StatusAcquired}, state))
	require.NoError(t, s.RecordTransition(ctx, run.ID, Transition{Slug: "Seed_Paper", From: types.StatusAcquired, To: types.StatusClassified, Error: "llm down"}, state))
	require.NoError(t, s.FinishRun(ctx, run.ID, RunCounts{Items: 1, Advanced: 1, Failed: 1}))

	last, ok, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, run.ID, last.ID)
	assert.Equal(t, []string{"acquire", "classify"}, last.Stages)
	assert.Equal(t, RunCounts{Items: 1, Advanced: 1, Failed: 1}, last.Counts)
	assert.False(t, last.FinishedAt.IsZero())

	trs, err := s.Transitions(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, trs, 2)
	assert.Equal(t, types.StatusAcquired, trs[0].To)
	assert.Empty(t, trs[0].Error)
	assert.Equal(t, "llm down", trs[1].Error)

	msg, err := s.LastError(ctx, "Seed_Paper")
	require.NoError(t, err)
	assert.Equal(t, "llm down", msg)
}

func TestReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	s, dir := openStore(t)
	run, err := s.BeginRun(ctx, []string{"aggregate"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again, err := Open(dir)
	require.NoError(t, err)
	defer again.Close()
	last, ok, err := again.LastRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, run.ID, last.ID)
}
