package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/repository"
	"github.com/appleater7/chatgpt-ui/internal/service"
	"github.com/appleater7/chatgpt-ui/tests/helpers"
)

func TestTerminateSessionRequiresAuthentication(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, time.Hour, nil)

	assert.False(t, fx.Service.TerminateSession(ctx, "sess_1", false))
	assert.True(t, fx.Service.TerminateSession(ctx, "sess_1", true))
}

func TestTerminateKnownSession(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, time.Hour, nil)

	assert.False(t, fx.Service.TerminateSession(ctx, "sess_123456789", false))
	session, err := fx.Sessions.GetSession(ctx, "sess_123456789")
	require.NoError(t, err)
	assert.True(t, session.IsActive, "unauthorized call must not change anything")

	assert.True(t, fx.Service.TerminateSession(ctx, "sess_123456789", true))
	session, err = fx.Service.GetSession(ctx, "sess_123456789", true)
	require.NoError(t, err)
	assert.False(t, session.IsActive)

	activities, err := fx.Service.GetSessionActivities(ctx, "sess_123456789", true)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivitySessionTerminated, activities[len(activities)-1].Action)
}

func TestSetSessionStatus(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, time.Hour, nil)

	assert.False(t, fx.Service.SetSessionStatus(ctx, "sess_456789123", true, false))

	assert.True(t, fx.Service.SetSessionStatus(ctx, "sess_456789123", true, true))
	session, err := fx.Sessions.GetSession(ctx, "sess_456789123")
	require.NoError(t, err)
	assert.True(t, session.IsActive)

	assert.True(t, fx.Service.SetSessionStatus(ctx, "sess_456789123", false, true))
	activities, err := fx.Sessions.ListActivities(ctx, "sess_456789123")
	require.NoError(t, err)
	n := len(activities)
	assert.Equal(t, domain.ActivitySessionResumed, activities[n-2].Action)
	assert.Equal(t, domain.ActivitySessionPaused, activities[n-1].Action)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, time.Hour, nil)

	anonymous, err := fx.Service.ListSessions(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, repository.SampleSessions(), anonymous)

	require.True(t, fx.Service.TerminateSession(ctx, "sess_159753456", true))

	// The anonymous view stays canned; the authenticated view reflects the change.
	anonymous, err = fx.Service.ListSessions(ctx, false)
	require.NoError(t, err)
	for _, s := range anonymous {
		if s.ID == "sess_159753456" {
			assert.True(t, s.IsActive)
		}
	}

	live, err := fx.Service.ListSessions(ctx, true)
	require.NoError(t, err)
	require.NotEmpty(t, live)
	assert.Equal(t, "sess_159753456", live[0].ID, "terminated session is now the most recently active")
	assert.False(t, live[0].IsActive)
}

func TestGetSession(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, time.Hour, nil)

	s, err := fx.Service.GetSession(ctx, "sess_987654321", false)
	require.NoError(t, err)
	assert.Equal(t, "jane.smith", s.Username)

	_, err = fx.Service.GetSession(ctx, "sess_nope", false)
	assert.Equal(t, service.ErrorNotFound, service.CodeOf(err))

	_, err = fx.Service.GetSession(ctx, "sess_nope", true)
	assert.Equal(t, service.ErrorNotFound, service.CodeOf(err))
}

func TestAnonymousActivitiesAreCanned(t *testing.T) {
	fx := helpers.NewTestService(t, time.Hour, nil)
	activities, err := fx.Service.GetSessionActivities(context.Background(), "anything", false)
	require.NoError(t, err)
	assert.Equal(t, repository.SampleActivities("anything"), activities)
}

func TestAdminWithoutDirectory(t *testing.T) {
	ctx := context.Background()
	svc := service.New(repository.NewMemoryStore(), nil, nil, nil, nil, helpers.DiscardLogger())

	assert.False(t, svc.TerminateSession(ctx, "sess_1", false))
	assert.True(t, svc.TerminateSession(ctx, "sess_1", true))

	sessions, err := svc.ListSessions(ctx, true)
	require.NoError(t, err)
	assert.Len(t, sessions, len(repository.SampleSessions()))
}
