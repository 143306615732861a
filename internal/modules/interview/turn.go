package interview

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview/steps"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type TurnInput struct {
	SessionID string
	Audio     []byte
	Filename  string
}

type TurnOutput struct {
	SessionID    string
	ResponseText string
	Video        []byte
	Completed    bool
	// Skill and Stage describe the ladder position after the turn; empty on the closing turn.
	Skill string
	Stage int
}

// ProcessTurn runs one audio-in/video-out exchange. The whole turn happens on
// a private copy of the session inside Store.Mutate; nothing is committed
// unless transcription, synthesis and compositing all succeed.
func (u Usecases) ProcessTurn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	const op = "process_turn"
	start := time.Now()
	id := strings.TrimSpace(in.SessionID)
	if id == "" || len(in.Audio) == 0 {
		return TurnOutput{}, domain.Errorf(domain.KindMissingParameters, op, "session_id and audio required")
	}
	log := u.deps.Log.With("session_id", id)

	var (
		out    TurnOutput
		scored []int
	)
	committed, err := u.deps.Store.Mutate(ctx, id, func(s *domain.Session) error {
		out = TurnOutput{SessionID: id}
		scored = scored[:0]
		return u.runTurn(ctx, log, s, in, &out, &scored)
	})
	if err != nil {
		u.deps.Metrics.ObserveTurn(turnOutcome(err), time.Since(start))
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyCompleted) {
			return TurnOutput{}, err
		}
		log.Warn("Turn failed", "error", err, "kind", string(domain.KindOf(err)))
		return TurnOutput{}, err
	}

	for _, sc := range scored {
		u.deps.Metrics.ObserveScore(sc)
	}
	u.deps.Metrics.ObserveTurn("ok", time.Since(start))
	if u.deps.Notify != nil {
		u.deps.Notify.TurnProcessed(ctx, committed, out.Skill, out.Stage)
	}
	if committed.Completed {
		u.finish(log, committed)
	}
	return out, nil
}

func (u Usecases) runTurn(ctx context.Context, log *logger.Logger, s *domain.Session, in TurnInput, out *TurnOutput, scored *[]int) error {
	if s.Completed {
		return domain.Errorf(domain.KindAlreadyCompleted, "process_turn", "interview already completed")
	}

	var text string
	err := u.upstream(ctx, "transcribe", u.deps.Providers.STT, u.deps.Timeouts.Transcribe, func(ctx context.Context) error {
		var err error
		text, err = u.deps.STT.Transcribe(ctx, in.Audio, in.Filename)
		return err
	})
	if err != nil {
		return domain.E(domain.KindUpstreamTranscriptionFailure, "transcribe", err)
	}
	text = strings.TrimSpace(text)
	log.Debug("Transcribed answer", "turn", s.TurnCount+1, "transcript", text)

	s.History = append(s.History, domain.Turn{UserText: text})
	s.TurnCount++

	gen := u.genDeps(log)
	if !s.FirstTurnSeen {
		s.AddressForm = steps.ExtractAddress(ctx, gen, text)
		s.FirstTurnSeen = true
	}

	var response string
	skill, ok := steps.NextSkill(s)
	if !ok {
		response = steps.ClosingMessage(s.AddressForm)
		s.Completed = true
		log.Info("Interview completed", steps.ScoreBreakdown(s)...)
	} else {
		stage := s.Stages[skill]
		sklog := log.With("skill", skill, "stage", stage, "turn", s.TurnCount)
		if stage == 0 {
			base := s.BaseQuestions[skill]
			if base == "" {
				return domain.Errorf(domain.KindMalformedUpstreamResponse, "process_turn", "no base question for %q", skill)
			}
			response = steps.BaseQuestionPrompt(s.AddressForm, base)
		} else {
			q, err := steps.GenerateClarifyingQuestion(ctx, gen, steps.ClarifyInput{
				Skill:        skill,
				LastQuestion: s.LastQuestion(skill),
				BaseQuestion: s.BaseQuestions[skill],
				Answer:       text,
				Resume:       s.Resume,
			})
			if err != nil {
				sklog.Warn("Clarifying question failed", "error", err)
				return err
			}
			response = q
		}

		// The answer is graded against the question about to be asked, not the
		// one it responds to. Tests pin this ordering.
		score, err := steps.EvaluateAnswer(ctx, steps.Deps{Log: sklog, AI: gen.AI}, steps.EvaluateInput{
			Skill:    skill,
			Question: response,
			Answer:   text,
			Resume:   s.Resume,
		})
		if err != nil {
			sklog.Warn("Answer not scored", "error", err)
		} else if s.AppendScore(skill, score) {
			*scored = append(*scored, score)
		}
		s.Advance(skill)
		out.Skill = skill
		out.Stage = s.Stages[skill]
	}
	s.History[len(s.History)-1].AIText = response

	var audio Audio
	err = u.upstream(ctx, "synthesize", u.deps.Providers.TTS, u.deps.Timeouts.Synthesize, func(ctx context.Context) error {
		var err error
		audio, err = u.deps.TTS.Synthesize(ctx, response, s.Voice)
		if err == nil && len(audio.Data) == 0 {
			err = errors.New("empty audio")
		}
		return err
	})
	if err != nil {
		return domain.E(domain.KindUpstreamSynthesisFailure, "synthesize", err)
	}

	var video []byte
	err = u.upstream(ctx, "composite", "ffmpeg", u.deps.Timeouts.Composite, func(ctx context.Context) error {
		var err error
		video, err = u.deps.Video.Composite(ctx, s.TemplateVideo, audio.Data, audio.Ext)
		return err
	})
	if err != nil {
		return domain.E(domain.KindUpstreamCompositingFailure, "composite", err)
	}

	out.ResponseText = response
	out.Video = video
	out.Completed = s.Completed
	return nil
}

// finish archives and announces a completed interview. It runs detached so
// the closing turn is not held up by the report narrative.
func (u Usecases) finish(log *logger.Logger, s *domain.Session) {
	u.bg.Add(1)
	go func() {
		defer u.bg.Done()
		if !s.HasScores() {
			log.Info("Interview completed without scores; nothing to archive")
			u.deps.Metrics.IncCompleted(false)
			return
		}
		ctx := context.Background()
		if u.deps.Timeouts.Archive > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, u.deps.Timeouts.Archive)
			defer cancel()
		}
		rep := steps.BuildReport(ctx, u.genDeps(log), s)
		archived := false
		if u.deps.Archive != nil {
			if err := u.deps.Archive.Save(ctx, rep, s); err != nil {
				log.Warn("Report archive failed", "error", err)
			} else {
				archived = true
			}
		}
		u.deps.Metrics.IncCompleted(archived)
		if u.deps.Notify != nil {
			u.deps.Notify.Completed(ctx, rep)
		}
	}()
}

func turnOutcome(err error) string {
	if k := domain.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}
