package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/avatar-interview-backend/internal/data/sessions"
	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview/steps"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type evalCall struct {
	question string
	answer   string
}

type fakeAI struct {
	mu sync.Mutex

	baseReply    string
	addressReply string
	addressErr   error
	evalReplies  []string
	clarifyErr   error
	reportErr    error

	base, clarify, address, report int
	evals                          []evalCall
	clarifyAfter                   []string
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.Contains(system, "базовому вопросу"):
		f.base++
		return f.baseReply, nil
	case strings.Contains(system, "как лучше обращаться"):
		f.address++
		return f.addressReply, f.addressErr
	case strings.Contains(system, "уточняющий вопрос"):
		f.clarify++
		f.clarifyAfter = append(f.clarifyAfter, between(user, "Последний заданный вопрос: ", "\n"))
		if f.clarifyErr != nil {
			return "", f.clarifyErr
		}
		return fmt.Sprintf("Уточнение номер %d?", f.clarify), nil
	case strings.Contains(system, "Ты оцениваешь"):
		f.evals = append(f.evals, evalCall{question: between(user, "Вопрос: ", "\n"), answer: between(user, "<<<CANDIDATE_TEXT\n", "\n")})
		if len(f.evalReplies) == 0 {
			return "Оценка: 7", nil
		}
		r := f.evalReplies[0]
		f.evalReplies = f.evalReplies[1:]
		return r, nil
	case strings.Contains(system, "HR-аналитик"):
		f.report++
		return "Отчёт", f.reportErr
	}
	return "", errors.New("unexpected prompt")
}

func (f *fakeAI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base + f.clarify + f.address + f.report + len(f.evals)
}

func between(s, from, to string) string {
	i := strings.Index(s, from)
	if i < 0 {
		return ""
	}
	s = s[i+len(from):]
	if j := strings.Index(s, to); j >= 0 {
		return s[:j]
	}
	return s
}

type fakeSTT struct {
	n     atomic.Int32
	err   error
	texts []string
	mu    sync.Mutex
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	n := f.n.Add(1)
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) > 0 {
		t := f.texts[0]
		f.texts = f.texts[1:]
		return t, nil
	}
	return fmt.Sprintf("ответ %d", n), nil
}

type fakeTTS struct {
	n     atomic.Int32
	err   error
	voice string
	mu    sync.Mutex
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, voice string) (Audio, error) {
	f.n.Add(1)
	f.mu.Lock()
	f.voice = voice
	f.mu.Unlock()
	if f.err != nil {
		return Audio{}, f.err
	}
	return Audio{Data: []byte("ogg:" + text), Ext: ".ogg"}, nil
}

type fakeVideo struct {
	n   atomic.Int32
	err error
}

func (f *fakeVideo) Composite(ctx context.Context, templatePath string, audio []byte, ext string) ([]byte, error) {
	f.n.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte(templatePath+"|"), audio...), nil
}

type fakeTemplates struct {
	mu       sync.Mutex
	fetched  []string
	released []string
	err      error
}

func (f *fakeTemplates) Fetch(ctx context.Context, id, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	p := "/tmp/templates/" + id + ".webm"
	f.fetched = append(f.fetched, p)
	return p, nil
}

func (f *fakeTemplates) Release(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, path)
}

type memArchive struct {
	mu   sync.Mutex
	reps map[string]domain.Report
}

func (a *memArchive) Save(ctx context.Context, rep domain.Report, s *domain.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reps == nil {
		a.reps = map[string]domain.Report{}
	}
	a.reps[rep.SessionID] = rep
	return nil
}

func (a *memArchive) Load(ctx context.Context, id string) (*domain.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rep, ok := a.reps[id]
	if !ok {
		return nil, nil
	}
	return &rep, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	turns     int
	completed []string
}

func (n *recordingNotifier) TurnProcessed(ctx context.Context, s *domain.Session, skill string, stage int) {
	n.mu.Lock()
	n.turns++
	n.mu.Unlock()
}

func (n *recordingNotifier) Completed(ctx context.Context, rep domain.Report) {
	n.mu.Lock()
	n.completed = append(n.completed, rep.SessionID)
	n.mu.Unlock()
}

type harness struct {
	u         Usecases
	store     sessions.Store
	ai        *fakeAI
	stt       *fakeSTT
	tts       *fakeTTS
	video     *fakeVideo
	templates *fakeTemplates
	archive   *memArchive
	notify    *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     sessions.NewMemoryStore(logger.NewNop(), sessions.Config{}),
		ai:        &fakeAI{baseReply: "Python: Что такое GIL?\nSQL: Что такое индекс?", addressReply: "Иван"},
		stt:       &fakeSTT{},
		tts:       &fakeTTS{},
		video:     &fakeVideo{},
		templates: &fakeTemplates{},
		archive:   &memArchive{},
		notify:    &recordingNotifier{},
	}
	h.u = New(UsecasesDeps{
		Log:       logger.NewNop(),
		Store:     h.store,
		AI:        h.ai,
		STT:       h.stt,
		TTS:       h.tts,
		Video:     h.video,
		Templates: h.templates,
		Archive:   h.archive,
		Notify:    h.notify,
		Voices:    Voices{Male: "zahar", Female: "oksana"},
	})
	return h
}

func (h *harness) init(t *testing.T, id string, skills ...string) {
	t.Helper()
	if len(skills) == 0 {
		skills = []string{"Python", "SQL"}
	}
	_, err := h.u.Initialize(context.Background(), InitializeInput{
		SessionID: id,
		Skills:    skills,
		JobTitle:  "Backend",
		Gender:    domain.GenderMale,
		VideoRef:  "media/anna.webm",
	})
	require.NoError(t, err)
}

func (h *harness) turn(id string) (TurnOutput, error) {
	return h.u.ProcessTurn(context.Background(), TurnInput{SessionID: id, Audio: []byte("RIFF"), Filename: "answer.wav"})
}

func (h *harness) session(t *testing.T, id string) *domain.Session {
	t.Helper()
	s, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func TestInitializeValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.u.Initialize(context.Background(), InitializeInput{Skills: []string{"Go"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingParameters))
	assert.Contains(t, err.Error(), "session_id")
	assert.Contains(t, err.Error(), "video_url")
	assert.Zero(t, h.ai.calls())
	assert.Empty(t, h.templates.fetched)
}

func TestInitializeCreatesSession(t *testing.T) {
	h := newHarness(t)
	out, err := h.u.Initialize(context.Background(), InitializeInput{
		SessionID: "link-1",
		Skills:    []string{"Python", "SQL"},
		JobTitle:  "Backend",
		Gender:    domain.GenderMale,
		VideoRef:  "media/anna.webm",
	})
	require.NoError(t, err)
	assert.Equal(t, "link-1", out.SessionID)
	assert.Equal(t, "Что такое GIL?", out.BaseQuestions["Python"])

	s := h.session(t, "link-1")
	assert.Equal(t, "zahar", s.Voice)
	assert.Equal(t, "/tmp/templates/link-1.webm", s.TemplateVideo)
	assert.Equal(t, map[string]int{"Python": 0, "SQL": 0}, s.Stages)

	_, err = h.u.Initialize(context.Background(), InitializeInput{
		SessionID: "link-1", Skills: []string{"Go"}, VideoRef: "x.webm",
	})
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
	assert.Equal(t, 1, h.ai.base, "a duplicate id must not trigger generation")
}

func TestInitializeMalformedBaseQuestionsIsFatal(t *testing.T) {
	h := newHarness(t)
	h.ai.baseReply = "Python: Что такое GIL?"
	_, err := h.u.Initialize(context.Background(), InitializeInput{
		SessionID: "a", Skills: []string{"Python", "SQL"}, VideoRef: "v.webm",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedUpstreamResponse))
	assert.Equal(t, 0, h.store.Len())
	assert.Equal(t, h.templates.fetched, h.templates.released, "fetched template must be released")
}

func TestInitializeTemplateFailure(t *testing.T) {
	h := newHarness(t)
	h.templates.err = errors.New("404")
	_, err := h.u.Initialize(context.Background(), InitializeInput{
		SessionID: "a", Skills: []string{"Python"}, VideoRef: "v.webm",
	})
	assert.True(t, errors.Is(err, domain.ErrUpstreamTemplateFailure))
	assert.False(t, errors.Is(err, domain.ErrUpstreamCompositingFailure))
	assert.Equal(t, 0, h.store.Len())
}

type fakeResumes struct {
	mu    sync.Mutex
	years float64
	err   error
	calls int
}

func (f *fakeResumes) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"general_experience_number": f.years}, nil
}

func TestInitializeEstimatesMissingExperience(t *testing.T) {
	h := newHarness(t)
	resumes := &fakeResumes{years: 7}
	h.u.deps.Resumes = resumes
	in := &domain.ResumeContext{Specialization: "Backend", WorkExperience: []string{"2017-2024 Acme, Go developer"}}
	_, err := h.u.Initialize(context.Background(), InitializeInput{
		SessionID: "r", Skills: []string{"Python"}, VideoRef: "v.webm", Resume: in,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resumes.calls)
	assert.Equal(t, 7.0, h.session(t, "r").Resume.ExperienceYears)
	assert.Zero(t, in.ExperienceYears, "caller's resume must not be mutated")

	known := &domain.ResumeContext{WorkExperience: []string{"x"}, ExperienceYears: 2}
	_, err = h.u.Initialize(context.Background(), InitializeInput{
		SessionID: "k", Skills: []string{"Python"}, VideoRef: "v.webm", Resume: known,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resumes.calls, "a stated total is kept as is")
	assert.Equal(t, 2.0, h.session(t, "k").Resume.ExperienceYears)
}

func TestInitializeExperienceEstimateFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.u.deps.Resumes = &fakeResumes{err: errors.New("down")}
	_, err := h.u.Initialize(context.Background(), InitializeInput{
		SessionID: "r", Skills: []string{"Python"}, VideoRef: "v.webm",
		Resume: &domain.ResumeContext{WorkExperience: []string{"2020-2024 Acme"}},
	})
	require.NoError(t, err)
	assert.Zero(t, h.session(t, "r").Resume.ExperienceYears)
}

func TestTwoSkillsThreeTurnsEachThenClosing(t *testing.T) {
	h := newHarness(t)
	h.init(t, "s")

	wantStages := []map[string]int{
		{"Python": 1, "SQL": 0},
		{"Python": 2, "SQL": 0},
		{"Python": 3, "SQL": 0},
		{"Python": 3, "SQL": 1},
		{"Python": 3, "SQL": 2},
		{"Python": 3, "SQL": 3},
	}
	prev := map[string]int{"Python": 0, "SQL": 0}
	for i, want := range wantStages {
		out, err := h.turn("s")
		require.NoError(t, err, "turn %d", i+1)
		assert.False(t, out.Completed)
		assert.NotEmpty(t, out.Video)

		s := h.session(t, "s")
		assert.Equal(t, want, s.Stages, "turn %d", i+1)
		for sk, st := range s.Stages {
			assert.GreaterOrEqual(t, st, prev[sk], "stage must never decrease")
			assert.LessOrEqual(t, len(s.Scores[sk]), domain.StagesDone)
		}
		prev = s.Stages
	}

	s := h.session(t, "s")
	_, more := steps.NextSkill(s)
	assert.False(t, more)
	assert.Equal(t, []int{7, 7, 7}, s.Scores["Python"])
	assert.Equal(t, []int{7, 7, 7}, s.Scores["SQL"])

	out, err := h.turn("s")
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, "Иван, благодарю за интервью. мы свяжемся с вами в ближайшее время.", out.ResponseText)
	assert.Empty(t, out.Skill)

	s = h.session(t, "s")
	assert.True(t, s.Completed)
	assert.Len(t, s.History, 7)
	assert.Len(t, h.ai.evals, 6, "the closing turn is not evaluated")

	h.u.Wait()
	assert.Equal(t, []string{"s"}, h.notify.completed)
	rep, err := h.archive.Load(context.Background(), "s")
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.InDelta(t, 70.0, rep.Percentage, 1e-9)
}

func TestCompletedSessionIsImmutable(t *testing.T) {
	h := newHarness(t)
	h.init(t, "s", "Python")
	for i := 0; i < 4; i++ {
		_, err := h.turn("s")
		require.NoError(t, err)
	}
	before := h.session(t, "s")
	require.True(t, before.Completed)
	sttCalls := h.stt.n.Load()

	_, err := h.turn("s")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyCompleted))
	assert.Equal(t, sttCalls, h.stt.n.Load(), "no transcription for a completed interview")

	after := h.session(t, "s")
	assert.Equal(t, before.Stages, after.Stages)
	assert.Equal(t, before.Scores, after.Scores)
	assert.Equal(t, before.History, after.History)
}

func TestFirstTurnUsesAddressAndBaseQuestion(t *testing.T) {
	h := newHarness(t)
	h.init(t, "s")
	out, err := h.turn("s")
	require.NoError(t, err)
	assert.Equal(t, "Иван, что такое gil?", out.ResponseText)
	assert.Equal(t, "Python", out.Skill)
	assert.Equal(t, 1, out.Stage)
	assert.Equal(t, "zahar", h.tts.voice)

	s := h.session(t, "s")
	assert.Equal(t, "Иван", s.AddressForm)
	assert.True(t, s.FirstTurnSeen)
	assert.Equal(t, domain.Turn{UserText: "ответ 1", AIText: "Иван, что такое gil?"}, s.History[0])
}

func TestEvaluatorGradesAnswerAgainstUpcomingQuestion(t *testing.T) {
	h := newHarness(t)
	h.init(t, "s")

	_, err := h.turn("s")
	require.NoError(t, err)
	_, err = h.turn("s")
	require.NoError(t, err)

	require.Len(t, h.ai.evals, 2)
	// First answer (the candidate's name) is graded against the base question
	// it has not heard yet.
	assert.Equal(t, "Иван, что такое gil?", h.ai.evals[0].question)
	assert.Equal(t, "ответ 1", h.ai.evals[0].answer)
	// Second answer responds to the base question but is graded against the
	// clarifying question generated in the same turn.
	assert.Equal(t, "Уточнение номер 1?", h.ai.evals[1].question)
	assert.Equal(t, "ответ 2", h.ai.evals[1].answer)
}

func TestClarifyingQuestionFollowsLastAskedQuestion(t *testing.T) {
	h := newHarness(t)
	h.init(t, "s", "Python")
	for i := 0; i < 3; i++ {
		_, err := h.turn("s")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"Иван, что такое gil?", "Уточнение номер 1?"}, h.ai.clarifyAfter)
}

func TestUnknownSessionMakesNoUpstreamCalls(t *testing.T) {
	h := newHarness(t)
	_, err := h.turn("ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Zero(t, h.stt.n.Load())
	assert.Zero(t, h.tts.n.Load())
	assert.Zero(t, h.video.n.Load())
	assert.Zero(t, h.ai.calls())
}

func TestAddressExtractedExactlyOnce(t *testing.T) {
	h := newHarness(t)
	h.ai.addressReply = ""
	h.init(t, "s")
	for i := 0; i < 5; i++ {
		_, err := h.turn("s")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.ai.address)
	assert.Equal(t, domain.DefaultAddressForm, h.session(t, "s").AddressForm)
}

func TestAddressFailureFallsBackToPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.ai.addressErr = errors.New("timeout")
	h.init(t, "s")
	out, err := h.turn("s")
	require.NoError(t, err)
	assert.Equal(t, "Кандидат, что такое gil?", out.ResponseText)
}

func TestUpstreamFailuresLeaveSessionUntouched(t *testing.T) {
	cases := []struct {
		name  string
		setup func(h *harness)
		kind  error
	}{
		{"transcription", func(h *harness) { h.stt.err = errors.New("stt down") }, domain.ErrUpstreamTranscriptionFailure},
		{"synthesis", func(h *harness) { h.tts.err = errors.New("tts down") }, domain.ErrUpstreamSynthesisFailure},
		{"compositing", func(h *harness) { h.video.err = errors.New("ffmpeg exit 1") }, domain.ErrUpstreamCompositingFailure},
		{"clarifying question", func(h *harness) { h.ai.clarifyErr = errors.New("llm down") }, domain.ErrUpstreamGenerationFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.init(t, "s")
			_, err := h.turn("s")
			require.NoError(t, err)
			before := h.session(t, "s")

			tc.setup(h)
			_, err = h.turn("s")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)

			after := h.session(t, "s")
			assert.Equal(t, before.Stages, after.Stages)
			assert.Equal(t, before.Scores, after.Scores)
			assert.Equal(t, before.History, after.History)
			assert.Equal(t, before.TurnCount, after.TurnCount)
		})
	}
}

func TestFailedFirstTurnRetriesAddressExtraction(t *testing.T) {
	h := newHarness(t)
	h.init(t, "s")
	h.tts.err = errors.New("tts down")
	_, err := h.turn("s")
	require.Error(t, err)
	assert.False(t, h.session(t, "s").FirstTurnSeen)

	h.tts.err = nil
	_, err = h.turn("s")
	require.NoError(t, err)
	assert.True(t, h.session(t, "s").FirstTurnSeen)
	assert.Equal(t, 2, h.ai.address)
}

func TestUnparsableScoreDoesNotAbortTurn(t *testing.T) {
	h := newHarness(t)
	h.ai.evalReplies = []string{"Оценка: 7", "Комментарий без оценки", "Оценка: 8"}
	h.init(t, "s", "Python")
	for i := 0; i < 3; i++ {
		_, err := h.turn("s")
		require.NoError(t, err)
	}
	s := h.session(t, "s")
	assert.Equal(t, 3, s.Stages["Python"])
	assert.Equal(t, []int{7, 8}, s.Scores["Python"])

	rep, err := h.u.Results(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, 15, rep.TotalScore)
	assert.Equal(t, 30, rep.MaxScore)
	assert.InDelta(t, 50.0, rep.Percentage, 1e-9)
}

func TestConcurrentTurnsOnOneSessionSerialize(t *testing.T) {
	h := newHarness(t)
	h.ai.baseReply = "Python: Что такое GIL?\nSQL: Что такое индекс?\nGo: Что такое горутина?"
	h.init(t, "s", "Python", "SQL", "Go")

	const n = 12
	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.turn("s"); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	s := h.session(t, "s")
	total := 0
	for _, sk := range s.Skills {
		total += s.Stages[sk]
		assert.LessOrEqual(t, len(s.Scores[sk]), domain.StagesDone)
	}
	assert.LessOrEqual(t, total, n)
	assert.Equal(t, int(ok.Load()), len(s.History))
	if !s.Completed {
		assert.Equal(t, int(ok.Load()), total)
	} else {
		assert.Equal(t, 9, total)
	}
}

func TestResultsNotFoundWithoutScores(t *testing.T) {
	h := newHarness(t)
	_, err := h.u.Results(context.Background(), "ghost")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	h.init(t, "s")
	_, err = h.u.Results(context.Background(), "s")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResultsNarrativeFailureKeepsNumbers(t *testing.T) {
	h := newHarness(t)
	h.ai.reportErr = errors.New("down")
	h.init(t, "s")
	_, err := h.turn("s")
	require.NoError(t, err)

	rep, err := h.u.Results(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, steps.NarrativePlaceholder, rep.Narrative)
	assert.Equal(t, map[string][]int{"Python": {7}, "SQL": {}}, rep.ScoresBySkill)
	assert.Equal(t, 30, rep.MaxScore)
	assert.Equal(t, []string{"Пользователь: ответ 1", "Бот: Иван, что такое gil?"}, rep.ConversationLog)
}

func TestResultsAfterEvictionComeFromArchive(t *testing.T) {
	h := newHarness(t)
	h.init(t, "s", "Python")
	for i := 0; i < 4; i++ {
		_, err := h.turn("s")
		require.NoError(t, err)
	}
	h.u.Wait()
	h.store.Delete(context.Background(), "s")

	rep, err := h.u.Results(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, "s", rep.SessionID)
	assert.True(t, rep.Completed)

	q, err := h.u.CurrentQuestion(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, steps.CompletedSentinel, q.Question)
	assert.True(t, q.Completed)
}

func TestUnscoredInterviewIsNotArchived(t *testing.T) {
	h := newHarness(t)
	h.ai.evalReplies = []string{"нет оценки", "нет оценки", "нет оценки"}
	h.init(t, "s", "Python")
	for i := 0; i < 4; i++ {
		_, err := h.turn("s")
		require.NoError(t, err)
	}
	h.u.Wait()
	assert.True(t, h.session(t, "s").Completed)
	assert.Empty(t, h.archive.reps)
	assert.Empty(t, h.notify.completed)
	assert.Zero(t, h.ai.report, "no narrative for an empty report")

	h.store.Delete(context.Background(), "s")
	_, err := h.u.Results(context.Background(), "s")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestArchivedReportWithoutScoresIsNotFound(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.archive.Save(context.Background(), domain.Report{
		SessionID:     "old",
		ScoresBySkill: map[string][]int{"Python": {}},
		Completed:     true,
	}, nil))
	_, err := h.u.Results(context.Background(), "old")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCurrentQuestion(t *testing.T) {
	h := newHarness(t)
	_, err := h.u.CurrentQuestion(context.Background(), "ghost")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	h.init(t, "s", "Python")
	q, err := h.u.CurrentQuestion(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, steps.NoQuestionSentinel, q.Question)

	_, err = h.turn("s")
	require.NoError(t, err)
	q, err = h.u.CurrentQuestion(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, "Иван, что такое gil?", q.Question)
	assert.False(t, q.Completed)

	for i := 0; i < 3; i++ {
		_, err = h.turn("s")
		require.NoError(t, err)
	}
	q, err = h.u.CurrentQuestion(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, steps.CompletedSentinel, q.Question)
	h.u.Wait()
}
