package app

import (
	"fmt"
	"net/http"

	"github.com/yungbote/avatar-interview-backend/internal/data/sessions"
	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview"
	"github.com/yungbote/avatar-interview-backend/internal/observability"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
	"github.com/yungbote/avatar-interview-backend/internal/realtime/bus"
	"github.com/yungbote/avatar-interview-backend/internal/services"
)

type Services struct {
	Store     sessions.Store
	Bus       bus.Bus
	STT       interview.Transcriber
	TTS       interview.Synthesizer
	Templates interview.TemplateFetcher
	Archive   interview.ReportArchive
	Notifier  interview.Notifier
	Interview interview.Usecases
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, repos Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	var s Services

	// Event bus
	s.Bus = bus.NewNoopBus()
	if clients.Redis != nil {
		b, err := bus.NewRedisBus(log, clients.Redis, firstNonEmpty(cfg.RedisChannel, bus.DefaultChannel))
		if err != nil {
			return Services{}, fmt.Errorf("init redis bus: %w", err)
		}
		s.Bus = b
	}

	// Speech
	var err error
	switch cfg.STTProvider {
	case ProviderGCP:
		s.STT, err = services.NewGCPTranscriber(log, clients.Speech, cfg.STTLanguage)
	case ProviderOpenAI:
		s.STT, err = services.NewOpenAITranscriber(log, clients.OpenAI, cfg.STTLanguage)
	default:
		err = fmt.Errorf("unknown STT_PROVIDER %q", cfg.STTProvider)
	}
	if err != nil {
		return Services{}, fmt.Errorf("init transcriber: %w", err)
	}

	switch cfg.TTSProvider {
	case ProviderYandex:
		s.TTS, err = services.NewYandexSynthesizer(log, clients.SpeechKit, cfg.TTSLanguage, cfg.TTSSpeed)
	case ProviderOpenAI:
		s.TTS, err = services.NewOpenAISynthesizer(log, clients.OpenAI)
	default:
		err = fmt.Errorf("unknown TTS_PROVIDER %q", cfg.TTSProvider)
	}
	if err != nil {
		return Services{}, fmt.Errorf("init synthesizer: %w", err)
	}

	// Templates
	s.Templates, err = services.NewTemplateFetcher(log, clients.Objects, &http.Client{Timeout: cfg.FetchTimeout}, services.TemplateFetcherConfig{
		WorkDir:   cfg.MediaWorkDir,
		BaseURL:   cfg.TemplateBaseURL,
		LocalRoot: cfg.TemplateLocalRoot,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init template fetcher: %w", err)
	}

	// Archive
	if repos.Report != nil {
		s.Archive = services.NewReportArchive(log, repos.Report)
	}
	s.Notifier = services.NewInterviewNotifier(log, s.Bus)

	templates := s.Templates
	s.Store = sessions.NewMemoryStore(log, sessions.Config{
		TTL:             cfg.SessionTTL,
		JanitorInterval: cfg.JanitorInterval,
		OnEvict: func(evicted []*domain.Session) {
			for _, sess := range evicted {
				if sess.TemplateVideo != "" {
					templates.Release(sess.TemplateVideo)
				}
			}
			metrics.AddEvicted(len(evicted))
			metrics.SetActiveSessions(s.Store.Len())
		},
	})

	s.Interview = interview.New(interview.UsecasesDeps{
		Log:       log,
		Store:     s.Store,
		AI:        clients.OpenAI,
		Resumes:   clients.OpenAI,
		STT:       s.STT,
		TTS:       s.TTS,
		Video:     clients.Media,
		Templates: s.Templates,
		Archive:   s.Archive,
		Notify:    s.Notifier,
		Voices:    interview.Voices{Male: cfg.VoiceMale, Female: cfg.VoiceFemale},
		Providers: interview.Providers{STT: cfg.STTProvider, TTS: cfg.TTSProvider, LLM: ProviderOpenAI},
		Timeouts: interview.Timeouts{
			Transcribe: cfg.TranscribeTimeout,
			Generate:   cfg.GenerateTimeout,
			Synthesize: cfg.SynthesizeTimeout,
			Composite:  cfg.CompositeTimeout,
			Fetch:      cfg.FetchTimeout,
			Archive:    cfg.ArchiveTimeout,
		},
		Metrics: metrics,
	})

	return s, nil
}

func firstNonEmpty(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
