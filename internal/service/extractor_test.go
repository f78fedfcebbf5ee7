package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestOpenAIExtractor(t *testing.T) {
	var gotModel, gotImage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		for _, part := range req.Messages[0].Content {
			if part.Type == "image_url" {
				gotImage = part.ImageURL.URL
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" What is 2+2?\nA) 3\nB) 4* "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	ex := NewOpenAIExtractor("test-key", srv.URL+"/v1", "gpt-4o-mini")
	text, err := ex.ExtractText(context.Background(), pngHeader)

	require.NoError(t, err)
	assert.Equal(t, "What is 2+2?\nA) 3\nB) 4*", text)
	assert.Equal(t, "gpt-4o-mini", gotModel)
	assert.True(t, strings.HasPrefix(gotImage, "data:image/png;base64,"))
}

func TestOpenAIExtractor_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	ex := NewOpenAIExtractor("test-key", srv.URL+"/v1", "")
	_, err := ex.ExtractText(context.Background(), pngHeader)
	assert.ErrorIs(t, err, ErrExtractionFailed)

	_, err = ex.ExtractText(context.Background(), nil)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestTesseractExtractor(t *testing.T) {
	path := writeScript(t, "cat > /dev/null\necho 'What is 2+2?'\necho 'A) 3'\necho 'B) 4'\n")

	text, err := NewTesseractExtractor(path, "").ExtractText(context.Background(), pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "What is 2+2?\nA) 3\nB) 4", text)
}

func TestTesseractExtractor_Failure(t *testing.T) {
	path := writeScript(t, "echo 'bad image' >&2\nexit 1\n")

	_, err := NewTesseractExtractor(path, "eng").ExtractText(context.Background(), pngHeader)
	require.ErrorIs(t, err, ErrExtractionFailed)
	assert.Contains(t, err.Error(), "bad image")
}

type flakyExtractor struct {
	failures int
	calls    int
}

func (f *flakyExtractor) ExtractText(context.Context, []byte) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("engine hiccup")
	}
	return "text", nil
}

func TestWithRetry(t *testing.T) {
	flaky := &flakyExtractor{failures: 1}
	text, err := WithRetry(flaky, 2, nil).ExtractText(context.Background(), pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "text", text)
	assert.Equal(t, 2, flaky.calls)

	broken := &flakyExtractor{failures: 5}
	_, err = WithRetry(broken, 2, nil).ExtractText(context.Background(), pngHeader)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Equal(t, 2, broken.calls)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	broken := &flakyExtractor{failures: 5}
	_, err := WithRetry(broken, 3, nil).ExtractText(ctx, pngHeader)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Equal(t, 1, broken.calls)
}

func TestNoopExtractor(t *testing.T) {
	_, err := NoopExtractor{}.ExtractText(context.Background(), pngHeader)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}
