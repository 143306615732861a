package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, srv *httptest.Server, cfg Config) *client {
	t.Helper()
	cfg.APIKey = "sk-test"
	cfg.BaseURL = srv.URL
	c, err := NewClient(logger.NewNop(), cfg)
	require.NoError(t, err)
	return c.(*client)
}

func writeResponsesText(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"output": []map[string]any{{
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "output_text", "text": text},
			},
		}},
		"usage": map[string]any{"input_tokens": 10, "output_tokens": 3},
	})
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(logger.NewNop(), Config{})
	assert.Error(t, err)
}

func TestGenerateTextSandboxesSystemPrompt(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeResponsesText(w, "Python: Что такое GIL?")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Model: "gpt-test"})
	out, err := c.GenerateText(context.Background(), "Сгенерируй вопросы.", "skills")
	require.NoError(t, err)
	assert.Equal(t, "Python: Что такое GIL?", out)
	require.Len(t, got.Input, 2)
	system, _ := got.Input[0].Content.(string)
	assert.Contains(t, system, "INTERVIEW_PROMPT_GUARD_V1")
	assert.Equal(t, "gpt-test", got.Model)
}

func TestGenerateTextRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeResponsesText(w, "ok")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{MaxRetries: 2})
	start := time.Now()
	out, err := c.GenerateText(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGenerateTextDoesNotRetryClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{MaxRetries: 3})
	_, err := c.GenerateText(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTemperatureFallback(t *testing.T) {
	temp := 0.2
	var withTemp, withoutTemp int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["temperature"]; ok {
			atomic.AddInt32(&withTemp, 1)
			http.Error(w, `{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`, http.StatusBadRequest)
			return
		}
		atomic.AddInt32(&withoutTemp, 1)
		writeResponsesText(w, "ok")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Model: "o3-mini", Temperature: &temp})
	_, err := c.GenerateText(context.Background(), "sys", "user")
	require.NoError(t, err)
	_, err = c.GenerateText(context.Background(), "sys", "user")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&withTemp), "model should be remembered as no-temperature")
	assert.Equal(t, int32(2), atomic.LoadInt32(&withoutTemp))
}

func TestNoTemperatureRules(t *testing.T) {
	m, prefixes := parseNoTempModelRules(" o1-* , GPT-5 ,, ")
	assert.True(t, m["gpt-5"])
	assert.Equal(t, []string{"o1"}, prefixes)
}

func TestGenerateJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		format := req["text"].(map[string]any)["format"].(map[string]any)
		assert.Equal(t, "json_schema", format["type"])
		writeResponsesText(w, `{"address":"Иван"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	obj, err := c.GenerateJSON(context.Background(), "sys", "user", "address", map[string]any{"type": "object"})
	require.NoError(t, err)
	assert.Equal(t, "Иван", obj["address"])

	_, err = c.GenerateJSON(context.Background(), "sys", "user", "", nil)
	assert.Error(t, err)
}

func TestTranscribeSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ru", r.FormValue("language"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "answer.webm", hdr.Filename)
		assert.Equal(t, "AUDIO", string(b))
		_, _ = io.WriteString(w, `{"text":"  Меня зовут Иван  "}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	text, err := c.Transcribe(context.Background(), []byte("AUDIO"), "answer.webm", "ru-RU")
	require.NoError(t, err)
	assert.Equal(t, "Меня зовут Иван", text)

	_, err = c.Transcribe(context.Background(), nil, "x", "ru")
	assert.Error(t, err)
}

func TestSynthesizeReturnsAudioBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		var req speechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "onyx", req.Voice)
		assert.Equal(t, "opus", req.ResponseFormat)
		assert.True(t, strings.HasPrefix(req.Input, "Иван"))
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("OggS-bytes"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	audio, err := c.Synthesize(context.Background(), "Иван, расскажите о себе.", "onyx", "")
	require.NoError(t, err)
	assert.Equal(t, "OggS-bytes", string(audio))
}
