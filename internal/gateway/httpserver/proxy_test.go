package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbelenkov/microshop/internal/gateway/ratelimit"
)

func newGateway(t *testing.T, d *Deps) *echo.Echo {
	e := echo.New()
	require.NoError(t, Register(e, d))
	return e
}

func doRequest(e *echo.Echo, method, path, body, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthPrefixStripped(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"username":"admin","password":"123"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer backend.Close()

	e := newGateway(t, &Deps{AuthURL: backend.URL, ProductURL: backend.URL})

	rec := doRequest(e, http.MethodPost, "/auth/login", `{"username":"admin","password":"123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"abc"}`, rec.Body.String())
}

func TestAuthorizationHeaderForwardedUnchanged(t *testing.T) {
	const bearer = "Bearer header.claims.signature"

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, bearer, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	e := newGateway(t, &Deps{AuthURL: backend.URL, ProductURL: backend.URL})

	rec := doRequest(e, http.MethodPost, "/products", `{"name":"Product 1","price":10}`, bearer)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestDownstreamErrorsPassThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"missing or invalid token"}`))
	}))
	defer backend.Close()

	e := newGateway(t, &Deps{AuthURL: backend.URL, ProductURL: backend.URL})

	// The gateway must not reinterpret an application 401.
	rec := doRequest(e, http.MethodPost, "/products", `{}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"missing or invalid token"}`, rec.Body.String())
}

func TestUpstreamUnavailable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close() // connection refused from here on

	e := newGateway(t, &Deps{AuthURL: backend.URL, ProductURL: backend.URL})

	rec := doRequest(e, http.MethodPost, "/products", `{}`, "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "upstream unavailable", resp["message"])
}

func TestUpstreamTimeout(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer backend.Close()

	e := newGateway(t, &Deps{
		AuthURL:         backend.URL,
		ProductURL:      backend.URL,
		UpstreamTimeout: 100 * time.Millisecond,
	})

	rec := doRequest(e, http.MethodPost, "/products", `{}`, "")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "upstream timeout", resp["message"])
}

func TestRateLimit(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	limiter := ratelimit.NewMemoryLimiter()
	defer limiter.Close()

	e := newGateway(t, &Deps{
		AuthURL:    backend.URL,
		ProductURL: backend.URL,
		Limiter:    limiter,
		RateLimit:  2,
		RateWindow: time.Minute,
	})

	for i := 0; i < 2; i++ {
		rec := doRequest(e, http.MethodPost, "/auth/login", `{}`, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doRequest(e, http.MethodPost, "/auth/login", `{}`, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
