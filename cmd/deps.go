package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/ai/gemini"
	"github.com/spigell/resume-matcher/internal/ai/openai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/notify"
	"github.com/spigell/resume-matcher/internal/secrets"
	"github.com/spigell/resume-matcher/internal/storage"
	"github.com/spigell/resume-matcher/internal/textutil"
)

const (
	providerGemini   = "gemini"
	providerVertexAI = "vertexai"
	providerOpenAI   = "openai"
)

// runtime holds the shared dependencies of a command invocation.
type runtime struct {
	logger  *zap.Logger
	config  *Config
	store   storage.Store
	closers []func() error
}

func bootstrap(ctx context.Context) *runtime {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	l.Debug("starting", zap.String("version", version), zap.String("storage_driver", config.Storage.Driver))

	store, err := openStore(ctx, config.Storage, l)
	if err != nil {
		l.Fatal("opening storage", zap.Error(err))
	}

	rt := &runtime{logger: l, config: config, store: store}
	rt.closers = append(rt.closers, store.Close)
	return rt
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("closing dependency", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}

func openStore(ctx context.Context, cfg *StorageConfig, l *zap.Logger) (storage.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == storage.DriverMemory {
		return storage.Open(ctx, driver, "", l)
	}

	dsn, err := secrets.Load(secrets.Source{
		Name:  "storage dsn",
		Value: cfg.DSN,
		File:  cfg.DSNFile,
		Env:   envPrefix + "_STORAGE_DSN",
	})
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, driver, dsn, l)
}

func newGenerator(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", providerGemini, providerVertexAI:
		opts := gemini.Options{
			Backend:    gemini.BackendGemini,
			Model:      cfg.Gemini.Model,
			MaxRetries: cfg.Gemini.MaxRetries,
			Project:    cfg.Gemini.Project,
			Location:   cfg.Gemini.Location,
		}
		if provider == providerVertexAI {
			opts.Backend = gemini.BackendVertexAI
		} else {
			apiKey, err := secrets.Load(secrets.Source{
				Name: "gemini api key",
				File: cfg.Gemini.APIKeyFile,
				Env:  "GEMINI_API_KEY",
			})
			if err != nil {
				return nil, fmt.Errorf("%w (or set ai.gemini.api-key-file)", err)
			}
			opts.APIKey = apiKey
		}
		return gemini.NewGenerator(ctx, opts, l)
	case providerOpenAI:
		apiKey, err := secrets.Load(secrets.Source{
			Name: "openai api key",
			File: cfg.OpenAI.APIKeyFile,
			Env:  "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (or set ai.openai.api-key-file)", err)
		}
		return openai.NewGenerator(apiKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, l)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func (rt *runtime) publisher() matching.Publisher {
	url := strings.TrimSpace(rt.config.Notify.AMQPURL)
	if url == "" {
		return notify.Noop{}
	}

	p, err := notify.DialAMQP(url, rt.config.Notify.Queue, rt.logger)
	if err != nil {
		rt.logger.Warn("match events are disabled", zap.Error(err))
		return notify.Noop{}
	}
	rt.closers = append(rt.closers, p.Close)
	return p
}

// services builds the generator-backed scorer and extractor plus the orchestrator.
func (rt *runtime) services(ctx context.Context) (*matching.Orchestrator, *ai.Extractor, error) {
	generator, err := newGenerator(ctx, rt.config.AI, rt.logger)
	if err != nil {
		return nil, nil, err
	}

	aiLogger := logger.WithCommonFields(rt.logger, rt.config.AI.Provider, generator.Model())
	scorer := ai.NewScoringClient(generator, rt.config.AI.Gemini.MaxLogLength, aiLogger)
	extractor := ai.NewExtractor(generator, rt.config.AI.Gemini.MaxLogLength, aiLogger)

	orchestrator := matching.New(matching.Config{
		DefaultTopN:   rt.config.Matching.DefaultTopN,
		Concurrency:   rt.config.Matching.Concurrency,
		CallTimeout:   rt.config.Matching.Timeout,
		RatePerSecond: rt.config.Matching.RatePerSecond,
		KeepRationale: rt.config.Matching.KeepRationale,
	}, matching.Deps{
		Resumes:   rt.store,
		History:   rt.store,
		Scorer:    scorer,
		Publisher: rt.publisher(),
		Logger:    rt.logger,
		Normalize: textutil.NormalizeJobDescription,
	})

	return orchestrator, extractor, nil
}
