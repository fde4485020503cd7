package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message wins", `{"message":"card declined","error":"Payment Required"}`, "card declined"},
		{"error next", `{"error":"Bad Request"}`, "Bad Request"},
		{"null message skipped", `{"message":null,"error":"boom"}`, "boom"},
		{"raw body", `plain failure`, "plain failure"},
		{"json without fields", `{"code":7}`, `{"code":7}`},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMessage([]byte(tt.body)))
		})
	}
}

func TestPostJSON_Headers(t *testing.T) {
	var gotKey, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(HeaderIdempotencyKey)
		gotType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct{ OK bool }
	err := New(srv.URL+"/", nil).PostJSON(context.Background(), "/x", map[string]string{"a": "b"}, "ORD-1", &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "ORD-1", gotKey)
	assert.Equal(t, "application/json", gotType)
}

func TestPostJSON_ErrorStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(HeaderIdempotencyKey))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New(srv.URL, nil).PostJSON(context.Background(), "/x", struct{}{}, "", nil)
	var re *ResponseError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusServiceUnavailable, re.Status)
	assert.Equal(t, "Service Unavailable", re.Message)
}

func TestPostJSON_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, nil).PostJSON(context.Background(), "/x", struct{}{}, "", nil)
	var re *ResponseError
	require.True(t, errors.As(err, &re))
	assert.Zero(t, re.Status)
}

func TestNew_DefaultClientHasNoTimeout(t *testing.T) {
	c := New("http://payments:8081/", nil)

	assert.Zero(t, c.http.Timeout)
	assert.Equal(t, "http://payments:8081", c.baseURL)
}
