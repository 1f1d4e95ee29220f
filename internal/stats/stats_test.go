package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
}

func TestStatsUpdaterIncrDecr(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.Run()
	defer su.Stop()

	su.Incr(NumOnlineUsers)
	su.Incr(NumOnlineUsers)
	su.Decr(NumOnlineUsers)
	su.Incr("unregistered")

	assert.Eventually(t, func() bool {
		return su.Value(NumOnlineUsers) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), su.Value("unregistered"))
}

func TestExpvarHandler(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	su.Run()
	defer su.Stop()

	su.Incr(NumMessagesSent)
	require.Eventually(t, func() bool {
		return su.Value(NumMessagesSent) == 1
	}, time.Second, 10*time.Millisecond)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	for _, name := range []string{NumActiveClients, NumOnlineUsers, NumMessagesSent, NumAdvisoryErrors, "Uptime"} {
		assert.Contains(t, body, name)
	}
	assert.Equal(t, float64(1), body[NumMessagesSent])
}

func TestStopIsIdempotent(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.Run()
	su.Stop()
	assert.NotPanics(t, su.Stop)
}

func TestIncrAfterStop(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.Run()
	su.Stop()
	assert.NotPanics(t, func() { su.Incr(NumActiveClients) })
}
