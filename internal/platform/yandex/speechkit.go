package yandex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/avatar-interview-backend/internal/platform/ctxutil"
	"github.com/yungbote/avatar-interview-backend/internal/platform/httpx"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

const defaultTTSURL = "https://tts.api.cloud.yandex.net/speech/v1/tts:synthesize"

// SpeechKit synthesizes speech with the SpeechKit v1 REST API.
type SpeechKit interface {
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) ([]byte, error)
}

type SynthesizeOptions struct {
	Voice      string // e.g. "zahar", "oksana"
	Language   string // default ru-RU
	Format     string // oggopus (default), mp3, lpcm
	SampleRate int    // only used for lpcm
	Speed      float64
}

type Config struct {
	APIKey string
	// IAMToken is used when APIKey is empty.
	IAMToken   string
	FolderID   string
	URL        string
	Timeout    time.Duration
	MaxRetries int
}

type client struct {
	log        *logger.Logger
	endpoint   string
	authHeader string
	folderID   string
	httpClient *http.Client
	maxRetries int
}

func NewSpeechKit(log *logger.Logger, cfg Config) (SpeechKit, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	auth := ""
	switch {
	case strings.TrimSpace(cfg.APIKey) != "":
		auth = "Api-Key " + strings.TrimSpace(cfg.APIKey)
	case strings.TrimSpace(cfg.IAMToken) != "":
		auth = "Bearer " + strings.TrimSpace(cfg.IAMToken)
	default:
		return nil, fmt.Errorf("missing YANDEX_API_KEY or YANDEX_IAM_TOKEN")
	}
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		endpoint = defaultTTSURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &client{
		log:        log.With("service", "yandex.SpeechKit"),
		endpoint:   endpoint,
		authHeader: auth,
		folderID:   strings.TrimSpace(cfg.FolderID),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: retries,
	}, nil
}

func (c *client) form(text string, opts SynthesizeOptions) url.Values {
	form := url.Values{}
	form.Set("text", text)
	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = "ru-RU"
	}
	form.Set("lang", lang)
	if v := strings.TrimSpace(opts.Voice); v != "" {
		form.Set("voice", v)
	}
	format := strings.TrimSpace(opts.Format)
	if format == "" {
		format = "oggopus"
	}
	form.Set("format", format)
	if format == "lpcm" {
		rate := opts.SampleRate
		if rate <= 0 {
			rate = 48000
		}
		form.Set("sampleRateHertz", strconv.Itoa(rate))
	}
	if opts.Speed > 0 {
		form.Set("speed", strconv.FormatFloat(opts.Speed, 'f', 1, 64))
	}
	if c.folderID != "" {
		form.Set("folderId", c.folderID)
	}
	return form
}

func (c *client) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) ([]byte, error) {
	ctx = ctxutil.Default(ctx)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty text")
	}
	body := c.form(text, opts).Encode()

	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, audio, err := c.doOnce(ctx, body)
		if err == nil {
			if len(audio) == 0 {
				return nil, errors.New("speechkit returned empty audio")
			}
			return audio, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries || ctx.Err() != nil {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 5*time.Second))
		c.log.Warn("SpeechKit request retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, body string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil, &httpx.StatusError{Service: "speechkit", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
