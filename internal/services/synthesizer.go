package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/avatar-interview-backend/internal/modules/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
	"github.com/yungbote/avatar-interview-backend/internal/platform/openai"
	"github.com/yungbote/avatar-interview-backend/internal/platform/yandex"
)

// Both synthesizers return Ogg/Opus so the compositor sees one audio format.
const synthesizedExt = ".ogg"

type openAISynthesizer struct {
	log *logger.Logger
	ai  openai.Client
}

func NewOpenAISynthesizer(log *logger.Logger, ai openai.Client) (interview.Synthesizer, error) {
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &openAISynthesizer{log: log.With("service", "OpenAISynthesizer"), ai: ai}, nil
}

func (s *openAISynthesizer) Synthesize(ctx context.Context, text, voice string) (interview.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return interview.Audio{}, fmt.Errorf("empty text")
	}
	data, err := s.ai.Synthesize(ctx, text, voice, "opus")
	if err != nil {
		return interview.Audio{}, err
	}
	return interview.Audio{Data: data, Ext: synthesizedExt}, nil
}

type yandexSynthesizer struct {
	log      *logger.Logger
	kit      yandex.SpeechKit
	language string
	speed    float64
}

func NewYandexSynthesizer(log *logger.Logger, kit yandex.SpeechKit, language string, speed float64) (interview.Synthesizer, error) {
	if kit == nil {
		return nil, fmt.Errorf("speechkit client required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if strings.TrimSpace(language) == "" {
		language = "ru-RU"
	}
	return &yandexSynthesizer{
		log:      log.With("service", "YandexSynthesizer"),
		kit:      kit,
		language: language,
		speed:    speed,
	}, nil
}

func (s *yandexSynthesizer) Synthesize(ctx context.Context, text, voice string) (interview.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return interview.Audio{}, fmt.Errorf("empty text")
	}
	data, err := s.kit.Synthesize(ctx, text, yandex.SynthesizeOptions{
		Voice:    voice,
		Language: s.language,
		Format:   "oggopus",
		Speed:    s.speed,
	})
	if err != nil {
		return interview.Audio{}, err
	}
	return interview.Audio{Data: data, Ext: synthesizedExt}, nil
}
