package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/dbctx"
	"github.com/yungbote/avatar-interview-backend/internal/platform/gcp"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
	"github.com/yungbote/avatar-interview-backend/internal/platform/yandex"
	"github.com/yungbote/avatar-interview-backend/internal/realtime"
)

type fakeOpenAI struct {
	filename, language string
	voice, format      string
	err                error
}

func (f *fakeOpenAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "", nil
}

func (f *fakeOpenAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	return nil, nil
}

func (f *fakeOpenAI) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	f.filename, f.language = filename, language
	return "  меня зовут Иван \n", f.err
}

func (f *fakeOpenAI) Synthesize(ctx context.Context, text, voice, format string) ([]byte, error) {
	f.voice, f.format = voice, format
	if f.err != nil {
		return nil, f.err
	}
	return []byte("OggS"), nil
}

type fakeSpeech struct {
	mime string
	cfg  gcp.SpeechConfig
}

func (f *fakeSpeech) TranscribeAudioBytes(ctx context.Context, audio []byte, mimeType string, cfg gcp.SpeechConfig) (string, error) {
	f.mime, f.cfg = mimeType, cfg
	return "готов начать", nil
}

func (f *fakeSpeech) Close() error { return nil }

type fakeSpeechKit struct {
	opts yandex.SynthesizeOptions
}

func (f *fakeSpeechKit) Synthesize(ctx context.Context, text string, opts yandex.SynthesizeOptions) ([]byte, error) {
	f.opts = opts
	return []byte("OggS"), nil
}

func TestOpenAITranscriber(t *testing.T) {
	ai := &fakeOpenAI{}
	tr, err := NewOpenAITranscriber(nil, ai, "")
	require.NoError(t, err)

	text, err := tr.Transcribe(context.Background(), []byte("RIFF"), "")
	require.NoError(t, err)
	assert.Equal(t, "меня зовут Иван", text)
	assert.Equal(t, "answer.wav", ai.filename)
	assert.Equal(t, "ru", ai.language)

	_, err = NewOpenAITranscriber(nil, nil, "ru")
	assert.Error(t, err)
}

func TestGCPTranscriberPicksMimeFromFilename(t *testing.T) {
	sp := &fakeSpeech{}
	tr, err := NewGCPTranscriber(nil, sp, "ru")
	require.NoError(t, err)

	text, err := tr.Transcribe(context.Background(), []byte("x"), "answer.webm")
	require.NoError(t, err)
	assert.Equal(t, "готов начать", text)
	assert.Equal(t, "audio/webm", sp.mime)
	assert.Equal(t, "ru-RU", sp.cfg.LanguageCode)
	assert.True(t, sp.cfg.EnableAutomaticPunctuation)
}

func TestAudioMimeType(t *testing.T) {
	cases := map[string]string{
		"a.wav":  "audio/wav",
		"a.WEBM": "audio/webm",
		"a.ogg":  "audio/ogg",
		"a.mp3":  "audio/mpeg",
		"a.flac": "audio/flac",
		"blob":   "audio/wav",
	}
	for in, want := range cases {
		assert.Equal(t, want, audioMimeType(in), in)
	}
}

func TestSynthesizers(t *testing.T) {
	ai := &fakeOpenAI{}
	s, err := NewOpenAISynthesizer(nil, ai)
	require.NoError(t, err)
	audio, err := s.Synthesize(context.Background(), "Иван, что такое gil?", "onyx")
	require.NoError(t, err)
	assert.Equal(t, ".ogg", audio.Ext)
	assert.Equal(t, "onyx", ai.voice)
	assert.Equal(t, "opus", ai.format)

	_, err = s.Synthesize(context.Background(), "  ", "onyx")
	assert.Error(t, err)

	kit := &fakeSpeechKit{}
	y, err := NewYandexSynthesizer(nil, kit, "", 0)
	require.NoError(t, err)
	audio, err = y.Synthesize(context.Background(), "Здравствуйте", "oksana")
	require.NoError(t, err)
	assert.Equal(t, []byte("OggS"), audio.Data)
	assert.Equal(t, yandex.SynthesizeOptions{Voice: "oksana", Language: "ru-RU", Format: "oggopus"}, kit.opts)
}

func newFetcher(t *testing.T, cfg TemplateFetcherConfig) *templateFetcher {
	t.Helper()
	if cfg.WorkDir == "" {
		cfg.WorkDir = t.TempDir()
	}
	f, err := NewTemplateFetcher(logger.NewNop(), nil, nil, cfg)
	require.NoError(t, err)
	return f.(*templateFetcher)
}

func TestTemplateFetcherSharesDownloads(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/media/anna.webm", r.URL.Path)
		_, _ = w.Write([]byte("webm-bytes"))
	}))
	defer srv.Close()

	f := newFetcher(t, TemplateFetcherConfig{BaseURL: srv.URL})
	ctx := context.Background()

	p1, err := f.Fetch(ctx, "s1", "media/anna.webm")
	require.NoError(t, err)
	p2, err := f.Fetch(ctx, "s2", "media/anna.webm?v=2")
	require.NoError(t, err)
	p3, err := f.Fetch(ctx, "s3", "media/anna.webm")
	require.NoError(t, err)
	assert.Equal(t, p1, p3)
	assert.Equal(t, ".webm", filepath.Ext(p1))
	assert.Equal(t, int32(2), hits.Load(), "a different reference string is a different template")

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(data))

	f.Release(p1)
	_, err = os.Stat(p1)
	assert.NoError(t, err, "still referenced by s3")
	f.Release(p3)
	_, err = os.Stat(p1)
	assert.True(t, os.IsNotExist(err))

	f.Release(p2)
	f.Release("/not/ours")
}

func TestTemplateFetcherConcurrentFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte("webm-bytes"))
	}))
	defer srv.Close()

	f := newFetcher(t, TemplateFetcherConfig{})
	const n = 8
	paths := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.Fetch(context.Background(), "s", srv.URL+"/t.webm")
			assert.NoError(t, err)
			paths[i] = p
		}(i)
	}
	wg.Wait()
	for _, p := range paths {
		assert.Equal(t, paths[0], p)
	}
	for _, p := range paths {
		f.Release(p)
	}
	_, err := os.Stat(paths[0])
	assert.True(t, os.IsNotExist(err))
}

func TestTemplateFetcherLocalAndErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tpl.mp4")
	require.NoError(t, os.WriteFile(src, []byte("mp4"), 0o644))

	f := newFetcher(t, TemplateFetcherConfig{LocalRoot: dir})
	p, err := f.Fetch(context.Background(), "s", src)
	require.NoError(t, err)
	assert.NotEqual(t, src, p)
	assert.Equal(t, ".mp4", filepath.Ext(p))

	p2, err := f.Fetch(context.Background(), "s", "tpl.mp4")
	require.NoError(t, err)
	assert.Equal(t, ".mp4", filepath.Ext(p2))

	_, err = f.Fetch(context.Background(), "s", "gs://bucket/tpl.webm")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "s", filepath.Join(dir, "missing.webm"))
	assert.Error(t, err)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()
	_, err = f.Fetch(context.Background(), "s", srv.URL+"/gone.webm")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "404 is not retried")
}

func TestTemplateFetcherRefusesFilesOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.webm")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(secret, filepath.Join(root, "link.webm")))

	refs := []string{
		"/etc/passwd",
		"file:///proc/self/environ",
		secret,
		"file://" + secret,
		"../" + filepath.Base(outside) + "/secret.webm",
		"link.webm",
		"ftp://example.com/t.webm",
	}

	disabled := newFetcher(t, TemplateFetcherConfig{})
	rooted := newFetcher(t, TemplateFetcherConfig{LocalRoot: root})
	for _, ref := range refs {
		for name, f := range map[string]*templateFetcher{"disabled": disabled, "rooted": rooted} {
			p, err := f.Fetch(context.Background(), "s", ref)
			require.ErrorIs(t, err, ErrTemplateRefRejected, "%s %q", name, ref)
			assert.Empty(t, p)
		}
	}
	entries, err := os.ReadDir(rooted.cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be copied into the cache")
}

func TestTemplateFetcherBaseURLRefusesAbsolutePaths(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("webm"))
	}))
	defer srv.Close()

	f := newFetcher(t, TemplateFetcherConfig{BaseURL: srv.URL, LocalRoot: t.TempDir()})
	_, err := f.Fetch(context.Background(), "s", "/etc/passwd")
	require.ErrorIs(t, err, ErrTemplateRefRejected)
	assert.Zero(t, hits.Load())
}

func TestTemplateFetcherRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newFetcher(t, TemplateFetcherConfig{MaxRetries: 1})
	_, err := f.Fetch(context.Background(), "s", srv.URL+"/t.webm")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTemplateFetcherRejectsOversized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	f := newFetcher(t, TemplateFetcherConfig{MaxBytes: 4})
	_, err := f.Fetch(context.Background(), "s", srv.URL+"/big.webm")
	require.Error(t, err)
	entries, _ := os.ReadDir(f.cfg.WorkDir)
	assert.Empty(t, entries, "partial downloads are removed")
}

type memReportRepo struct {
	rows map[string]domain.InterviewReport
	err  error
}

func (m *memReportRepo) Upsert(dbc dbctx.Context, row *domain.InterviewReport) error {
	if m.err != nil {
		return m.err
	}
	if m.rows == nil {
		m.rows = map[string]domain.InterviewReport{}
	}
	m.rows[row.SessionID] = *row
	return nil
}

func (m *memReportRepo) GetBySessionID(dbc dbctx.Context, id string) (*domain.InterviewReport, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *memReportRepo) Count(dbc dbctx.Context) (int64, error) {
	return int64(len(m.rows)), nil
}

func TestReportArchiveRoundTrip(t *testing.T) {
	repo := &memReportRepo{}
	a := NewReportArchive(nil, repo)
	ctx := context.Background()

	s := domain.NewSession("s", []string{"Python"}, "Backend", domain.GenderFemale, "oksana", nil)
	s.History = []domain.Turn{{UserText: "Иван", AIText: "Иван, что такое gil?"}}
	s.TurnCount = 1
	rep := domain.Report{
		SessionID:       "s",
		JobTitle:        "Backend",
		Skills:          []string{"Python"},
		ScoresBySkill:   map[string][]int{"Python": {7, 8}},
		TotalScore:      15,
		MaxScore:        30,
		Percentage:      50,
		Narrative:       "Отчёт",
		ConversationLog: s.ConversationLog(),
	}
	require.NoError(t, a.Save(ctx, rep, s))
	assert.Equal(t, 1, repo.rows["s"].TurnCount)
	assert.JSONEq(t, `[{"user":"Иван","ai":"Иван, что такое gil?"}]`, string(repo.rows["s"].History))

	got, err := a.Load(ctx, "s")
	require.NoError(t, err)
	require.NotNil(t, got)
	rep.Completed = true
	assert.Equal(t, rep, *got)

	missing, err := a.Load(ctx, "other")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	repo.err = errors.New("db down")
	assert.Error(t, a.Save(ctx, rep, s))
}

type recordingBus struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (b *recordingBus) Publish(ctx context.Context, ev realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return b.err
}

func (b *recordingBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	return nil
}

func (b *recordingBus) Close() error { return nil }

func TestInterviewNotifierPublishes(t *testing.T) {
	b := &recordingBus{}
	n := NewInterviewNotifier(nil, b)
	s := domain.NewSession("s", []string{"Python"}, "", domain.GenderMale, "zahar", nil)
	s.TurnCount = 2

	n.TurnProcessed(context.Background(), s, "Python", 2)
	n.Completed(context.Background(), domain.Report{SessionID: "s", TotalScore: 15, MaxScore: 30, Percentage: 50})

	require.Len(t, b.events, 2)
	assert.Equal(t, realtime.EventTurnProcessed, b.events[0].Type)
	assert.Equal(t, "s", b.events[0].SessionID)
	assert.Equal(t, map[string]any{"skill": "Python", "stage": 2, "turn": 2, "completed": false}, b.events[0].Data)
	assert.Equal(t, realtime.EventCompleted, b.events[1].Type)
	assert.Equal(t, 50.0, b.events[1].Data["percentage"])

	b.err = errors.New("redis down")
	n.Completed(context.Background(), domain.Report{SessionID: "s"})
	assert.Len(t, b.events, 3)
}
