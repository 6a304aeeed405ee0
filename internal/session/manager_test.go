package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/flashcards-server/internal/model"
	"github.com/dtroode/flashcards-server/internal/testutil"
)

func TestManager_CreateGet(t *testing.T) {
	m := NewManager(time.Hour, testutil.MakeNoopLogger())

	s, err := m.Create("alice", KindStudy, Filter{Domain: "DB"}, NewStudy(makeEntries(2), noShuffle), nil)
	require.NoError(t, err)
	assert.Len(t, s.ID, 21)

	got, err := m.Get("alice", s.ID, KindStudy)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("bob", s.ID, KindStudy)
	assert.ErrorIs(t, err, model.ErrNotFound, "other users cannot see the session")

	_, err = m.Get("alice", s.ID, KindQuiz)
	assert.ErrorIs(t, err, model.ErrNotFound, "kind must match")

	_, err = m.Get("alice", "missing", KindStudy)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager(time.Minute, testutil.MakeNoopLogger())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, err := m.Create("alice", KindQuiz, Filter{}, nil, NewQuiz(makeEntries(1), 0, noShuffle))
	require.NoError(t, err)
	active, err := m.Create("alice", KindStudy, Filter{}, NewStudy(makeEntries(1), noShuffle), nil)
	require.NoError(t, err)

	now = now.Add(50 * time.Second)
	_, err = m.Get("alice", active.ID, KindStudy)
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	assert.Equal(t, 1, m.Evict())
	assert.Equal(t, 1, m.Len())

	_, err = m.Get("alice", idle.ID, KindQuiz)
	assert.ErrorIs(t, err, model.ErrNotFound)

	now = now.Add(2 * time.Minute)
	_, err = m.Get("alice", active.ID, KindStudy)
	assert.ErrorIs(t, err, model.ErrNotFound, "expired sessions are not returned before eviction")
}

func TestManager_DeleteOwner(t *testing.T) {
	m := NewManager(time.Hour, testutil.MakeNoopLogger())

	for _, owner := range []string{"alice", "alice", "bob"} {
		_, err := m.Create(owner, KindStudy, Filter{}, NewStudy(makeEntries(1), noShuffle), nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, m.DeleteOwner("alice"))
	assert.Equal(t, 1, m.Len())
}

func TestManager_Delete(t *testing.T) {
	m := NewManager(time.Hour, testutil.MakeNoopLogger())
	s, err := m.Create("alice", KindStudy, Filter{}, NewStudy(makeEntries(1), noShuffle), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Delete("bob", s.ID), model.ErrNotFound)
	require.NoError(t, m.Delete("alice", s.ID))
	assert.Equal(t, 0, m.Len())
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	m := NewManager(time.Millisecond, testutil.MakeNoopLogger())
	_, err := m.Create("alice", KindStudy, Filter{}, NewStudy(makeEntries(1), noShuffle), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
