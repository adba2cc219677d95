package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

func commit(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, httptest.NewRequest(http.MethodGet, "/", nil), sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestRenewRetiresPreviousID(t *testing.T) {
	ctx := context.Background()
	sm, mr := newTestManager(t)

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetReturnTo("/events/3")
	sess.Set(CSRFSessionKey, "token")
	cookie := commit(t, sm, sess)
	oldID := cookie.Value

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err = sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, oldID, sess.ID)

	sm.Renew(sess)
	assert.NotEqual(t, oldID, sess.ID)
	assert.Empty(t, sess.Get(CSRFSessionKey))
	assert.Equal(t, "/events/3", sess.Get(ReturnToKey))

	cookie = commit(t, sm, sess)
	assert.Equal(t, sess.ID, cookie.Value)
	assert.False(t, mr.Exists("session:"+oldID))
	assert.True(t, mr.Exists("session:"+sess.ID))

	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.AddCookie(&http.Cookie{Name: "test_session", Value: oldID})
	fresh, err := sm.Load(ctx, stale)
	require.NoError(t, err)
	assert.NotEqual(t, oldID, fresh.ID, "retired id is never resurrected")
	assert.Empty(t, fresh.Get(ReturnToKey))
}
