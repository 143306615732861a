package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

var ErrObjectNotFound = errors.New("gcs object not found")

// ObjectReader opens objects by gs:// reference.
type ObjectReader interface {
	Open(ctx context.Context, gsURI string) (io.ReadCloser, error)
	Close() error
}

type StorageConfig struct {
	Credentials string
	// EmulatorHost switches to a fake-gcs-server style endpoint, e.g. http://localhost:4443.
	EmulatorHost string
}

type objectReader struct {
	log          *logger.Logger
	client       *storage.Client
	emulatorHost string
	httpClient   *http.Client
}

func NewObjectReader(ctx context.Context, log *logger.Logger, cfg StorageConfig) (ObjectReader, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	serviceLog := log.With("service", "gcp.ObjectReader")
	emulator := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
	if emulator != "" {
		if u, err := url.Parse(emulator); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid storage emulator host %q", cfg.EmulatorHost)
		}
		serviceLog.Info("Object storage initialized", "mode", "gcs_emulator", "emulator_host", emulator)
		return &objectReader{log: serviceLog, emulatorHost: emulator, httpClient: http.DefaultClient}, nil
	}

	opts := ClientOptions(cfg.Credentials)
	opts = append(opts, option.WithScopes(storage.ScopeReadOnly))
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog.Info("Object storage initialized", "mode", "gcs")
	return &objectReader{log: serviceLog, client: c}, nil
}

// ParseGSURI splits gs://bucket/path/to/object.
func ParseGSURI(raw string) (bucket string, key string, err error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "gs://") {
		return "", "", fmt.Errorf("not a gs:// reference: %q", raw)
	}
	rest := strings.TrimPrefix(raw, "gs://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", fmt.Errorf("gs:// reference needs bucket and object: %q", raw)
	}
	return bucket, key, nil
}

func (r *objectReader) Open(ctx context.Context, gsURI string) (io.ReadCloser, error) {
	bucket, key, err := ParseGSURI(gsURI)
	if err != nil {
		return nil, err
	}
	if r.emulatorHost != "" {
		return r.openEmulator(ctx, bucket, key)
	}
	rc, err := r.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, gsURI)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	return rc, nil
}

func (r *objectReader) openEmulator(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	mediaURL := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		r.emulatorHost,
		url.PathEscape(bucket),
		url.PathEscape(key),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed creating emulator download request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed emulator download request: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, key)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

func (r *objectReader) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// EmulatorHostFromEnv mirrors the storage client's own STORAGE_EMULATOR_HOST convention.
func EmulatorHostFromEnv() string {
	return strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST"))
}
