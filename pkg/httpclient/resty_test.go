package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestyClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]string{"q": r.URL.Query().Get("q")})
		case http.MethodPost:
			var in map[string]float64
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(map[string]float64{"doubled": in["x"] * 2})
		}
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, "secret", 0)

	var got map[string]string
	resp, err := client.Get(context.Background(), "/echo", map[string]string{"q": "hi"}, nil, &got)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "hi", got["q"])

	var doubled map[string]float64
	resp, err = client.Post(context.Background(), "/double", map[string]float64{"x": 2.5}, nil, &doubled)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5.0, doubled["doubled"])
}

func TestRestyClient_ServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var out map[string]any
	resp, err := New(srv.URL, time.Second, "", 1).Get(context.Background(), "/", nil, nil, &out)
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, 2, calls, "one retry on 5xx")
}
