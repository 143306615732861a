package interview

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview/steps"
)

type InitializeInput struct {
	SessionID string
	Skills    []string
	JobTitle  string
	Gender    domain.Gender
	// VideoRef points at the template video: gs://, http(s) or a local path.
	VideoRef string
	Resume   *domain.ResumeContext
}

type InitializeOutput struct {
	SessionID     string            `json:"session_id"`
	BaseQuestions map[string]string `json:"base_questions"`
}

// Initialize creates a session. The template fetch and the base question
// generation run concurrently; both must succeed. A resume without an
// experience total gets a best-effort estimate alongside them.
func (u Usecases) Initialize(ctx context.Context, in InitializeInput) (InitializeOutput, error) {
	const op = "initialize"
	id := strings.TrimSpace(in.SessionID)
	skills := domain.NormalizeSkills(in.Skills)
	ref := strings.TrimSpace(in.VideoRef)

	var missing []string
	if id == "" {
		missing = append(missing, "session_id")
	}
	if len(skills) == 0 {
		missing = append(missing, "skills")
	}
	if ref == "" {
		missing = append(missing, "video_url")
	}
	if len(missing) > 0 {
		return InitializeOutput{}, domain.Errorf(domain.KindMissingParameters, op, "missing: %s", strings.Join(missing, ", "))
	}

	if _, err := u.deps.Store.Get(ctx, id); err == nil {
		return InitializeOutput{}, domain.Errorf(domain.KindAlreadyExists, op, "session %q already exists", id)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return InitializeOutput{}, err
	}

	log := u.deps.Log.With("session_id", id)
	var (
		templatePath string
		questions    map[string]string
		years        float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return u.upstream(gctx, "template", "fetch", u.deps.Timeouts.Fetch, func(ctx context.Context) error {
			p, err := u.deps.Templates.Fetch(ctx, id, ref)
			if err != nil {
				return domain.E(domain.KindUpstreamTemplateFailure, "fetch_template", err)
			}
			templatePath = p
			return nil
		})
	})
	g.Go(func() error {
		q, err := steps.GenerateBaseQuestions(gctx, u.genDeps(log), steps.BaseQuestionsInput{
			JobTitle: in.JobTitle,
			Skills:   skills,
			Resume:   in.Resume,
		})
		if err != nil {
			return err
		}
		questions = q
		return nil
	})
	if steps.NeedsExperience(in.Resume) && u.deps.Resumes != nil {
		g.Go(func() error {
			years = steps.EstimateExperience(gctx, u.genDeps(log), u.resumeGen(), in.Resume)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if templatePath != "" {
			u.deps.Templates.Release(templatePath)
		}
		log.Warn("Session initialization failed", "error", err)
		return InitializeOutput{}, err
	}

	resume := in.Resume
	if years > 0 {
		resume = resume.Clone()
		resume.ExperienceYears = years
		log.Debug("Experience estimated from resume", "years", years)
	}
	sess := domain.NewSession(id, skills, in.JobTitle, in.Gender, u.deps.Voices.For(in.Gender), resume)
	sess.BaseQuestions = questions
	sess.TemplateVideo = templatePath
	if err := u.deps.Store.Create(ctx, sess); err != nil {
		u.deps.Templates.Release(templatePath)
		return InitializeOutput{}, err
	}
	u.deps.Metrics.SetActiveSessions(u.deps.Store.Len())
	log.Info("Interview session created", "skills", len(skills), "voice", sess.Voice)

	out := InitializeOutput{SessionID: id, BaseQuestions: make(map[string]string, len(questions))}
	for k, v := range questions {
		out.BaseQuestions[k] = v
	}
	return out, nil
}
