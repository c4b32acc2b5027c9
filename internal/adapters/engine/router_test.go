package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imniteen/loom/internal/domain"
)

func TestResolveThreadComposesDeterministicID(t *testing.T) {
	router := NewSessionRouter(newRecordingCheckpoints(), testLogger())
	ctx := context.Background()

	first, err := router.ResolveThread(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice:s1", first.ThreadID)
	assert.Equal(t, "s1", first.SessionID)
	assert.True(t, first.IsNew)

	second, err := router.ResolveThread(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, second.ThreadID)
}

func TestResolveThreadMintsSessionID(t *testing.T) {
	router := NewSessionRouter(newRecordingCheckpoints(), testLogger())

	res, err := router.ResolveThread(context.Background(), "alice", "")
	require.NoError(t, err)

	require.NotEmpty(t, res.SessionID)
	_, err = uuid.Parse(res.SessionID)
	assert.NoError(t, err)
	assert.Equal(t, "alice:"+res.SessionID, res.ThreadID)
	assert.True(t, res.IsNew)
}

func TestResolveThreadDetectsResume(t *testing.T) {
	cps := newRecordingCheckpoints()
	router := NewSessionRouter(cps, testLogger())
	ctx := context.Background()

	state := domain.NewConversationState("alice:s1", "alice", "s1")
	_, err := cps.Save(ctx, "alice:s1", state, "")
	require.NoError(t, err)

	res, err := router.ResolveThread(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.False(t, res.IsNew)

	fresh, err := router.ResolveThread(ctx, "alice", "s2")
	require.NoError(t, err)
	assert.True(t, fresh.IsNew)
}

func TestResolveThreadRejectsInvalidUser(t *testing.T) {
	router := NewSessionRouter(newRecordingCheckpoints(), testLogger())
	ctx := context.Background()

	_, err := router.ResolveThread(ctx, "", "s1")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))

	_, err = router.ResolveThread(ctx, "alice:admin", "s1")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}
