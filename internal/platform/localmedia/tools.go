package localmedia

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/avatar-interview-backend/internal/platform/ctxutil"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

// Tools wraps the ffmpeg/ffprobe binaries used to put synthesized speech
// onto the interviewer's template video.
//
// REQUIRED BINARIES in the runtime image: ffmpeg, ffprobe (libvpx-vp9 + libopus).
type Tools interface {
	AssertReady(ctx context.Context) error

	// ProbeDurationSeconds returns the container duration of a media file.
	ProbeDurationSeconds(ctx context.Context, path string) (float64, error)
	// LoopVideoToDuration loops videoPath for seconds, muxing audioPath, into a VP9/Opus webm.
	LoopVideoToDuration(ctx context.Context, videoPath, audioPath string, seconds float64, outPath string) error
	// ReplaceAudio copies the video stream of videoPath and takes audio from audioPath.
	ReplaceAudio(ctx context.Context, videoPath, audioPath, outPath string) error
	// Composite runs probe, loop and replace for one turn and returns the webm bytes.
	Composite(ctx context.Context, templatePath string, audio []byte, audioExt string) ([]byte, error)

	WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error)
}

type Config struct {
	FFmpegPath  string
	FFprobePath string
	WorkRoot    string
	// StepTimeout bounds each ffmpeg invocation.
	StepTimeout time.Duration
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type tools struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string
	workRoot    string
	stepTimeout time.Duration
	run         runFunc
}

func New(log *logger.Logger, cfg Config) Tools {
	t := &tools{
		log:         log.With("service", "MediaTools"),
		ffmpegPath:  firstNonEmpty(cfg.FFmpegPath, "ffmpeg"),
		ffprobePath: firstNonEmpty(cfg.FFprobePath, "ffprobe"),
		workRoot:    firstNonEmpty(cfg.WorkRoot, filepath.Join(os.TempDir(), "avatar-interview-media")),
		stepTimeout: cfg.StepTimeout,
		run:         execRun,
	}
	if t.stepTimeout <= 0 {
		t.stepTimeout = 2 * time.Minute
	}
	return t
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func firstNonEmpty(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func (m *tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

// WriteTempFile writes data under the work root with a unique name.
func (m *tools) WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	f, err := os.CreateTemp(m.workRoot, "media-*"+suffix)
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close temp file: %w", err)
	}
	return path, cleanup, nil
}

func (m *tools) ProbeDurationSeconds(ctx context.Context, path string) (float64, error) {
	ctx = ctxutil.Default(ctx)
	if path == "" {
		return 0, fmt.Errorf("path required")
	}
	ctx, cancel := context.WithTimeout(ctx, m.stepTimeout)
	defer cancel()

	out, err := m.run(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w; out=%s", err, strings.TrimSpace(string(out)))
	}
	return parseDuration(string(out))
}

func parseDuration(raw string) (float64, error) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "N/A" {
			continue
		}
		d, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		if d <= 0 {
			return 0, fmt.Errorf("non-positive duration %q", line)
		}
		return d, nil
	}
	return 0, fmt.Errorf("no duration in ffprobe output %q", strings.TrimSpace(raw))
}

func (m *tools) LoopVideoToDuration(ctx context.Context, videoPath, audioPath string, seconds float64, outPath string) error {
	ctx = ctxutil.Default(ctx)
	if seconds <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, m.stepTimeout)
	defer cancel()

	out, err := m.run(ctx, m.ffmpegPath,
		"-y",
		"-stream_loop", "-1",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "libvpx-vp9",
		"-t", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-c:a", "libopus",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg loop failed: %w; out=%s", err, tail(out))
	}
	return nil
}

func (m *tools) ReplaceAudio(ctx context.Context, videoPath, audioPath, outPath string) error {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, m.stepTimeout)
	defer cancel()

	out, err := m.run(ctx, m.ffmpegPath,
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg replace audio failed: %w; out=%s", err, tail(out))
	}
	return nil
}

func (m *tools) Composite(ctx context.Context, templatePath string, audio []byte, audioExt string) ([]byte, error) {
	ctx = ctxutil.Default(ctx)
	if strings.TrimSpace(templatePath) == "" {
		return nil, fmt.Errorf("template video required")
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio required")
	}
	if audioExt == "" {
		audioExt = ".ogg"
	}
	audioPath, cleanupAudio, err := m.WriteTempFile(ctx, audio, audioExt)
	if err != nil {
		return nil, err
	}
	defer cleanupAudio()

	dur, err := m.ProbeDurationSeconds(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(m.workRoot, "turn-*")
	if err != nil {
		return nil, fmt.Errorf("mkdir turn dir: %w", err)
	}
	defer os.RemoveAll(dir)

	looped := filepath.Join(dir, "looped.webm")
	final := filepath.Join(dir, "final.webm")
	if err := m.LoopVideoToDuration(ctx, templatePath, audioPath, dur, looped); err != nil {
		return nil, err
	}
	if err := m.ReplaceAudio(ctx, looped, audioPath, final); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(final)
	if err != nil {
		return nil, fmt.Errorf("read composited video: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("composited video is empty")
	}
	m.log.Debug("Composited turn video", "audio_seconds", dur, "bytes", len(b))
	return b, nil
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 800 {
		s = "..." + s[len(s)-800:]
	}
	return s
}
