package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/avatar-interview-backend/internal/data/db"
	"github.com/yungbote/avatar-interview-backend/internal/platform/gcp"
	"github.com/yungbote/avatar-interview-backend/internal/platform/localmedia"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
	"github.com/yungbote/avatar-interview-backend/internal/platform/openai"
	"github.com/yungbote/avatar-interview-backend/internal/platform/yandex"
)

// Clients are the external connections. Optional ones are nil when not configured.
type Clients struct {
	OpenAI    openai.Client
	Speech    gcp.Speech
	Objects   gcp.ObjectReader
	SpeechKit yandex.SpeechKit
	Redis     *goredis.Client
	DB        *gorm.DB
	Media     localmedia.Tools
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients
	fail := func(err error) (Clients, error) {
		c.Close()
		return Clients{}, err
	}

	// Openai
	ai, err := openai.NewClient(log, openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		Model:               cfg.OpenAIModel,
		TranscribeModel:     cfg.OpenAITranscribeModel,
		SpeechModel:         cfg.OpenAISpeechModel,
		NoTemperatureModels: cfg.OpenAINoTempModels,
	})
	if err != nil {
		return fail(fmt.Errorf("init openai client: %w", err))
	}
	c.OpenAI = ai

	// Gcp
	if cfg.STTProvider == ProviderGCP {
		sp, err := gcp.NewSpeech(ctx, log, cfg.GCPCredentials)
		if err != nil {
			return fail(fmt.Errorf("init speech client: %w", err))
		}
		c.Speech = sp
	}
	if emulator := gcp.EmulatorHostFromEnv(); emulator != "" || cfg.GCPCredentials != "" {
		objects, err := gcp.NewObjectReader(ctx, log, gcp.StorageConfig{
			Credentials:  cfg.GCPCredentials,
			EmulatorHost: emulator,
		})
		if err != nil {
			return fail(fmt.Errorf("init object storage: %w", err))
		}
		c.Objects = objects
	}

	// Yandex
	if cfg.TTSProvider == ProviderYandex {
		kit, err := yandex.NewSpeechKit(log, yandex.Config{
			APIKey:   cfg.YandexAPIKey,
			IAMToken: cfg.YandexIAMToken,
			FolderID: cfg.YandexFolderID,
		})
		if err != nil {
			return fail(fmt.Errorf("init speechkit client: %w", err))
		}
		c.SpeechKit = kit
	}

	// Redis
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        cfg.RedisAddr,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return fail(fmt.Errorf("redis ping: %w", err))
		}
		c.Redis = rdb
	}

	// Archive
	theDB, err := db.Open(log, db.Config{Driver: cfg.ArchiveDriver, DSN: cfg.ArchiveDSN})
	if err != nil {
		return fail(fmt.Errorf("init archive db: %w", err))
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		return fail(fmt.Errorf("archive automigrate: %w", err))
	}
	if err := db.EnsureReportIndexes(theDB); err != nil {
		log.Warn("Archive index creation failed", "error", err)
	}
	c.DB = theDB

	// Media
	c.Media = localmedia.New(log, localmedia.Config{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		WorkRoot:    cfg.MediaWorkDir,
		StepTimeout: cfg.CompositeTimeout,
	})
	if err := c.Media.AssertReady(ctx); err != nil {
		return fail(fmt.Errorf("media tools: %w", err))
	}

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Speech != nil {
		_ = c.Speech.Close()
	}
	if c.Objects != nil {
		_ = c.Objects.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
