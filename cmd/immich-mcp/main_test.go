package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, immichURL string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf("immich_url: %s\nimmich_api_key: secret-api-key\nlog_level: error\n", immichURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestToolsCommandListsCatalog(t *testing.T) {
	out, err := runCLI(t, "tools")

	require.NoError(t, err)
	for _, name := range []string{"checkAssetsInAlbum", "moveAssetsToAlbum", "uploadAssets", "validateConnection"} {
		assert.Contains(t, out, name)
	}
}

func TestConfigCommandMasksSecrets(t *testing.T) {
	path := writeTestConfig(t, "http://immich:2283")

	out, err := runCLI(t, "config", "--config", path)

	require.NoError(t, err)
	assert.Contains(t, out, "secr")
	assert.NotContains(t, out, "secret-api-key")
}

func TestCheckCommand(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/server/ping":
			_, _ = w.Write([]byte(`{"res":"pong"}`))
		case "/api/server/about":
			_, _ = w.Write([]byte(`{"version":"v1.132.0"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer healthy.Close()

	out, err := runCLI(t, "check", "--config", writeTestConfig(t, healthy.URL))
	require.NoError(t, err)
	assert.Contains(t, out, healthy.URL+"/api")
	assert.Contains(t, out, "v1.132.0")

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer down.Close()

	out, err = runCLI(t, "check", "--config", writeTestConfig(t, down.URL))
	assert.Error(t, err)
	assert.Contains(t, out, "Invalid API key")
}

func TestUploadCommand(t *testing.T) {
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/assets" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"asset-1","status":"created"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer fake.Close()

	dir := t.TempDir()
	photo := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("jpeg"), 0o600))
	missing := filepath.Join(dir, "missing.jpg")

	out, err := runCLI(t, "upload", "--config", writeTestConfig(t, fake.URL), photo, missing)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 uploads failed")
	assert.Contains(t, out, "asset-1")
	assert.Contains(t, out, "missing.jpg")
	assert.Contains(t, out, "1 uploaded, 1 failed")
}
