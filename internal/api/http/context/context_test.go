package context

import (
	stdctx "context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_SetAndGetUsername(t *testing.T) {
	m := NewManager()
	ctx := m.SetUsernameToContext(stdctx.Background(), "alice")

	got, ok := m.GetUsernameFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", got)
}

func TestManager_GetUsername_NotFound(t *testing.T) {
	m := NewManager()
	_, ok := m.GetUsernameFromContext(stdctx.Background())
	assert.False(t, ok)

	_, ok = m.GetUsernameFromContext(m.SetUsernameToContext(stdctx.Background(), ""))
	assert.False(t, ok)
}

func TestManager_Overwrite(t *testing.T) {
	m := NewManager()
	ctx := m.SetUsernameToContext(stdctx.Background(), "alice")
	ctx = m.SetUsernameToContext(ctx, "bob")

	got, ok := m.GetUsernameFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "bob", got)
}
