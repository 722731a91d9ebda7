package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"authflow/internal/apiclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture records the last request a test server saw.
type capture struct {
	method string
	path   string
	header http.Header
	body   map[string]any
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *capture) {
	t.Helper()
	seen := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.method = r.Method
		seen.path = r.URL.Path
		seen.header = r.Header.Clone()
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &seen.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestLogin(t *testing.T) {
	t.Run("returns the access token", func(t *testing.T) {
		srv, seen := newServer(t, http.StatusOK, `{"access_token":"abc123"}`)

		token, err := apiclient.New(srv.URL).Login(context.Background(), "ann@example.com", "s3cret")
		require.NoError(t, err)

		assert.Equal(t, "abc123", token)
		assert.Equal(t, http.MethodPost, seen.method)
		assert.Equal(t, apiclient.PathLogin, seen.path)
		assert.Equal(t, "application/json", seen.header.Get("Content-Type"))
		assert.NotEmpty(t, seen.header.Get("X-Request-ID"))
		assert.Equal(t, map[string]any{"email": "ann@example.com", "password": "s3cret"}, seen.body)
	})

	t.Run("missing token is malformed regardless of status", func(t *testing.T) {
		for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusUnauthorized} {
			srv, _ := newServer(t, status, `{"message":"welcome"}`)

			token, err := apiclient.New(srv.URL).Login(context.Background(), "a@b.c", "pw")
			assert.Empty(t, token)
			assert.ErrorIs(t, err, apiclient.ErrMalformedResponse, "status %d", status)
			assert.Equal(t, apiclient.KindMalformedResponse, apiclient.KindOf(err))
		}
	})

	t.Run("distinguishes missing from wrong type", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"token":"x"}`)
		_, err := apiclient.New(srv.URL).Login(context.Background(), "a@b.c", "pw")
		assert.ErrorIs(t, err, apiclient.ErrFieldMissing)
		assert.NotErrorIs(t, err, apiclient.ErrFieldType)

		srv, _ = newServer(t, http.StatusOK, `{"access_token":42}`)
		_, err = apiclient.New(srv.URL).Login(context.Background(), "a@b.c", "pw")
		assert.ErrorIs(t, err, apiclient.ErrFieldType)
		assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"access_token":"  "}`)
		_, err := apiclient.New(srv.URL).Login(context.Background(), "a@b.c", "pw")
		assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
	})

	t.Run("non-json body", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `<html>oops</html>`)
		_, err := apiclient.New(srv.URL).Login(context.Background(), "a@b.c", "pw")
		assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
	})

	t.Run("json that is not an object", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `["abc123"]`)
		_, err := apiclient.New(srv.URL).Login(context.Background(), "a@b.c", "pw")
		assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
		assert.ErrorContains(t, err, "array")
	})

	t.Run("empty body", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, "")
		_, err := apiclient.New(srv.URL).Login(context.Background(), "a@b.c", "pw")
		assert.ErrorIs(t, err, apiclient.ErrEmptyResponse)
	})

	t.Run("server error text is surfaced", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusUnauthorized, `{"error":"invalid email or password"}`)
		_, err := apiclient.New(srv.URL).Login(context.Background(), "a@b.c", "pw")

		var apiErr *apiclient.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.ErrorContains(t, err, "invalid email or password")
	})

	t.Run("connection refused is a transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		token, err := apiclient.New(url).Login(context.Background(), "a@b.c", "pw")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, apiclient.ErrTransport)
	})

	t.Run("cancelled context is a transport error", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"access_token":"abc"}`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := apiclient.New(srv.URL).Login(ctx, "a@b.c", "pw")
		assert.ErrorIs(t, err, apiclient.ErrTransport)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid base url", func(t *testing.T) {
		_, err := apiclient.New("://nope").Login(context.Background(), "a@b.c", "pw")
		assert.ErrorIs(t, err, apiclient.ErrInvalidEndpoint)
	})
}

func TestRegister(t *testing.T) {
	fixed := time.Date(2024, 11, 8, 9, 30, 0, 0, time.UTC)
	srv, seen := newServer(t, http.StatusCreated, `{"access_token":"reg-token"}`)

	client := apiclient.New(srv.URL, apiclient.WithClock(func() time.Time { return fixed }))
	token, err := client.Register(context.Background(), "Ann Lee", "ann@example.com", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, "reg-token", token)
	assert.Equal(t, apiclient.PathRegister, seen.path)
	assert.Equal(t, "Ann Lee", seen.body["username"])
	assert.Equal(t, "ann@example.com", seen.body["email"])
	assert.Equal(t, "s3cret", seen.body["password"])
	assert.Equal(t, "2024-11-08T09:30:00.000Z", seen.body["createdAt"])
}

func TestRegisterWithoutTokenKeepsStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusCreated, `{"id":1}`)

	_, err := apiclient.New(srv.URL).Register(context.Background(), "Ann Lee", "ann@example.com", "s3cret")
	require.Error(t, err)
	assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
	assert.ErrorIs(t, err, apiclient.ErrFieldMissing)

	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusCreated, apiErr.Status)
	assert.Contains(t, err.Error(), "status 201")
}

func TestRegisterAlwaysSendsCreatedAt(t *testing.T) {
	srv, seen := newServer(t, http.StatusCreated, `{"access_token":"t"}`)

	_, err := apiclient.New(srv.URL).Register(context.Background(), "", "", "")
	require.NoError(t, err)

	createdAt, ok := seen.body["createdAt"].(string)
	require.True(t, ok)
	_, err = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	assert.NoError(t, err)
}

func TestGetProfile(t *testing.T) {
	t.Run("sends the bearer token and returns the object", func(t *testing.T) {
		srv, seen := newServer(t, http.StatusOK, `{"firstName":"Ann","lastName":"Lee","status":"active","extra":1}`)

		fields, err := apiclient.New(srv.URL).GetProfile(context.Background(), "abc123")
		require.NoError(t, err)

		assert.Equal(t, http.MethodGet, seen.method)
		assert.Equal(t, apiclient.PathProfile, seen.path)
		assert.Equal(t, "Bearer abc123", seen.header.Get("Authorization"))
		assert.Equal(t, "Ann", fields["firstName"])
		assert.Contains(t, fields, "extra")
	})

	t.Run("non-object body fails", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `"hello"`)
		_, err := apiclient.New(srv.URL).GetProfile(context.Background(), "abc123")
		assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
	})
}

type failingDoer struct{ err error }

func (f failingDoer) Do(*http.Request) (*http.Response, error) { return nil, f.err }

func TestWithHTTPClient(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	client := apiclient.New("http://localhost:3000", apiclient.WithHTTPClient(failingDoer{err: boom}))

	_, err := client.GetProfile(context.Background(), "t")
	assert.ErrorIs(t, err, apiclient.ErrTransport)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "get profile: transport error: dial tcp: connection refused", err.Error())
}
