package pseudo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectSendsBearerToken(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(nerResponse{})
	}))
	t.Cleanup(srv.Close)

	c := NewNERClient(NERConfig{BaseURL: srv.URL, Token: "s3cret"}, nil)
	_, err := c.Detect(context.Background(), "texte")
	require.NoError(t, err)

	assert.Equal(t, "/predict", gotPath)
	assert.Equal(t, "Bearer s3cret", gotAuth)
}

func TestDetectNoAuthHeaderWithoutToken(t *testing.T) {
	t.Setenv("PSEUDO_TOKEN", "")

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(nerResponse{})
	}))
	t.Cleanup(srv.Close)

	c := NewNERClient(NERConfig{BaseURL: srv.URL}, nil)
	_, err := c.Detect(context.Background(), "texte")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestNewNERClientTokenFromEnv(t *testing.T) {
	t.Setenv("PSEUDO_TOKEN", "env-token")
	c := NewNERClient(NERConfig{BaseURL: "http://localhost:8055"}, nil)
	assert.Equal(t, "env-token", c.cfg.Token)
}

func TestDetectServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := NewNERClient(NERConfig{BaseURL: srv.URL}, nil)
	_, err := c.Detect(context.Background(), "texte")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ner status 401")
}
