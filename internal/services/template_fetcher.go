package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/avatar-interview-backend/internal/modules/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/gcp"
	"github.com/yungbote/avatar-interview-backend/internal/platform/httpx"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type TemplateFetcherConfig struct {
	// WorkDir holds downloaded templates. Defaults to os.TempDir()/interview-templates.
	WorkDir string
	// BaseURL resolves references that carry no scheme, e.g. "media/anna.webm".
	// Absolute filesystem paths are refused while it is set.
	BaseURL string
	// LocalRoot is the only directory plain paths and file:// references may
	// read from. Empty disables local references.
	LocalRoot  string
	MaxBytes   int64
	MaxRetries int
}

// ErrTemplateRefRejected is returned for references outside the allowed sources.
var ErrTemplateRefRejected = errors.New("template reference not allowed")

type cachedTemplate struct {
	path string
	refs int
}

// templateFetcher downloads avatar template videos once per reference and
// shares the local copy between sessions until the last one releases it.
type templateFetcher struct {
	log     *logger.Logger
	objects gcp.ObjectReader
	http    *http.Client
	cfg     TemplateFetcherConfig

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]*cachedTemplate
	paths map[string]string
}

// NewTemplateFetcher builds a fetcher. objects may be nil, in which case gs://
// references are rejected.
func NewTemplateFetcher(log *logger.Logger, objects gcp.ObjectReader, httpClient *http.Client, cfg TemplateFetcherConfig) (interview.TemplateFetcher, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if strings.TrimSpace(cfg.WorkDir) == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "interview-templates")
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("template work dir: %w", err)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 512 << 20
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &templateFetcher{
		log:     log.With("service", "TemplateFetcher"),
		objects: objects,
		http:    httpClient,
		cfg:     cfg,
		cache:   map[string]*cachedTemplate{},
		paths:   map[string]string{},
	}, nil
}

func (f *templateFetcher) Fetch(ctx context.Context, sessionID, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty template reference")
	}
	key := cacheKey(ref)

	f.mu.Lock()
	if c, ok := f.cache[key]; ok {
		c.refs++
		f.mu.Unlock()
		return c.path, nil
	}
	f.mu.Unlock()

	v, err, _ := f.group.Do(key, func() (any, error) {
		return f.download(ctx, ref, key)
	})
	if err != nil {
		f.log.Warn("Template fetch failed", "session_id", sessionID, "ref", ref, "error", err)
		return "", err
	}
	path := v.(string)

	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cache[key]
	if !ok {
		c = &cachedTemplate{path: path}
		f.cache[key] = c
		f.paths[path] = key
	}
	c.refs++
	return c.path, nil
}

// Release drops one reference; the file is removed with the last one.
func (f *templateFetcher) Release(path string) {
	if path == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.paths[path]
	if !ok {
		return
	}
	c := f.cache[key]
	c.refs--
	if c.refs > 0 {
		return
	}
	delete(f.cache, key)
	delete(f.paths, path)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.log.Warn("Template cleanup failed", "path", path, "error", err)
	}
}

func (f *templateFetcher) download(ctx context.Context, ref, key string) (string, error) {
	start := time.Now()
	rc, err := f.open(ctx, ref)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	ext := strings.ToLower(filepath.Ext(strings.SplitN(ref, "?", 2)[0]))
	if ext == "" || len(ext) > 6 {
		ext = ".webm"
	}
	tmp, err := os.CreateTemp(f.cfg.WorkDir, key+"-*.part")
	if err != nil {
		return "", err
	}
	n, err := io.Copy(tmp, io.LimitReader(rc, f.cfg.MaxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > f.cfg.MaxBytes {
		err = fmt.Errorf("template exceeds %d bytes", f.cfg.MaxBytes)
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("template is empty")
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	final := filepath.Join(f.cfg.WorkDir, key+ext)
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	f.log.Info("Template fetched", "ref", ref, "bytes", n, "duration_ms", time.Since(start).Milliseconds())
	return final, nil
}

func (f *templateFetcher) open(ctx context.Context, ref string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(ref, "gs://"):
		if f.objects == nil {
			return nil, fmt.Errorf("gs:// template %q but object storage is not configured", ref)
		}
		return f.objects.Open(ctx, ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return f.get(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		return f.openLocal(strings.TrimPrefix(ref, "file://"))
	case hasScheme(ref):
		return nil, fmt.Errorf("%w: unsupported scheme in %q", ErrTemplateRefRejected, ref)
	case f.cfg.BaseURL != "":
		if filepath.IsAbs(ref) {
			return nil, fmt.Errorf("%w: absolute path %q", ErrTemplateRefRejected, ref)
		}
		u, err := resolveRef(f.cfg.BaseURL, ref)
		if err != nil {
			return nil, err
		}
		return f.get(ctx, u)
	default:
		return f.openLocal(ref)
	}
}

// openLocal opens p only when it resolves, symlinks included, inside LocalRoot.
// Relative paths are taken relative to LocalRoot.
func (f *templateFetcher) openLocal(p string) (io.ReadCloser, error) {
	if f.cfg.LocalRoot == "" {
		return nil, fmt.Errorf("%w: local templates are disabled", ErrTemplateRefRejected)
	}
	root, err := filepath.Abs(f.cfg.LocalRoot)
	if err != nil {
		return nil, err
	}
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	target := filepath.FromSlash(p)
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)
	if !within(root, target) {
		return nil, fmt.Errorf("%w: %q is outside the template root", ErrTemplateRefRejected, p)
	}
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return nil, err
	}
	if !within(root, resolved) {
		return nil, fmt.Errorf("%w: %q is outside the template root", ErrTemplateRefRejected, p)
	}
	return os.Open(resolved)
}

// hasScheme ignores single letter schemes so Windows drive paths stay paths.
func hasScheme(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && len(u.Scheme) > 1
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func (f *templateFetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.http.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}
		if err == nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			err = &httpx.StatusError{Service: "template", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		lastErr = err
		if !httpx.IsRetryableError(err) || attempt == f.cfg.MaxRetries {
			break
		}
		sleep := httpx.RetryAfterDuration(resp, httpx.JitterSleep(backoff), 10*time.Second)
		if err := httpx.Sleep(ctx, sleep); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("template download %s: %w", rawURL, lastErr)
}

func resolveRef(base, ref string) (string, error) {
	b, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid template base url: %w", err)
	}
	r, err := url.Parse(strings.TrimLeft(ref, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid template reference: %w", err)
	}
	return b.ResolveReference(r).String(), nil
}

func cacheKey(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:])[:16]
}
