package gcp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

func TestParseGSURI(t *testing.T) {
	cases := []struct {
		in      string
		bucket  string
		key     string
		wantErr bool
	}{
		{in: "gs://avatars/hr/anna.webm", bucket: "avatars", key: "hr/anna.webm"},
		{in: " gs://b/k ", bucket: "b", key: "k"},
		{in: "gs://bucket-only", wantErr: true},
		{in: "gs://bucket/", wantErr: true},
		{in: "https://example.com/a.webm", wantErr: true},
	}
	for _, tc := range cases {
		bucket, key, err := ParseGSURI(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.bucket, bucket)
		assert.Equal(t, tc.key, key)
	}
}

func TestObjectReaderEmulator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() == "/storage/v1/b/avatars/o/hr%2Fanna.webm" && r.URL.Query().Get("alt") == "media" {
			_, _ = w.Write([]byte("webm-bytes"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r, err := NewObjectReader(context.Background(), logger.NewNop(), StorageConfig{EmulatorHost: srv.URL})
	require.NoError(t, err)
	defer r.Close()

	rc, err := r.Open(context.Background(), "gs://avatars/hr/anna.webm")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, "webm-bytes", string(b))

	_, err = r.Open(context.Background(), "gs://avatars/missing.webm")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewObjectReaderRejectsBadEmulatorHost(t *testing.T) {
	_, err := NewObjectReader(context.Background(), logger.NewNop(), StorageConfig{EmulatorHost: "localhost"})
	assert.Error(t, err)
}
