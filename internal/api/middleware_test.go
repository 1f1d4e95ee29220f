package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/npezzotti/go-chatlive/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler_PanicRecovery(t *testing.T) {
	buf := &bytes.Buffer{}
	app := &GoChatApp{
		log: testutil.TestLogger(t),
	}

	app.log.SetOutput(buf)

	// handler that panics
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("test panic"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler := app.errorHandler(panicHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "close", rr.Header().Get("Connection"))
	assert.Contains(t, buf.String(), "panic: test panic")
	assert.NotContains(t, rr.Body.String(), "test panic")
}

func Test_errorHandler_NoPanic(t *testing.T) {
	app := &GoChatApp{}

	// simple handler that does not panic
	called := false
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler := app.errorHandler(okHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.True(t, called, "expected handler to be called")
}

func Test_authMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	app := &GoChatApp{
		log:        testutil.TestLogger(t),
		signingKey: []byte("test-signing-key"),
	}
	app.log.SetOutput(buf)

	tokenHandler := func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		if !ok {
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "user %d", userId)
	}

	token, err := app.createJwtForSession(1, defaultJwtExpiration)
	if err != nil {
		t.Fatalf("failed to create jwt token: %v", err)
	}

	tcases := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
		wantBody   string
		wantLog    string
	}{
		{
			name: "valid cookie",
			prepare: func(r *http.Request) {
				r.AddCookie(createJwtCookie(token, defaultJwtExpiration))
			},
			wantStatus: http.StatusOK,
			wantBody:   "user 1",
		},
		{
			name: "valid bearer token",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+token)
			},
			wantStatus: http.StatusOK,
			wantBody:   "user 1",
		},
		{
			name:       "missing token",
			prepare:    func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "invalid token",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "invalid-token"})
			},
			wantStatus: http.StatusUnauthorized,
			wantLog:    "failed to extract user id from token",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.prepare(req)

			app.authMiddleware(tokenHandler).ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, rr.Body.String())
				assert.Equal(t, "no-store, no-cache, must-revalidate, private", rr.Header().Get("Cache-Control"))
			}
			if tc.wantLog != "" {
				assert.Contains(t, buf.String(), tc.wantLog)
			}
		})
	}
}

func Test_checkOrigin(t *testing.T) {
	app := &GoChatApp{allowedOrigins: []string{"http://localhost:3000"}}

	tcases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://localhost:3001", false},
	}

	for _, tc := range tcases {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		assert.Equal(t, tc.want, app.checkOrigin(req), tc.origin)
	}
}
