package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/kiln/internal/cache"
	rediscache "github.com/davidbz/kiln/internal/cache/redis"
	"github.com/davidbz/kiln/internal/config"
	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/http"
	"github.com/davidbz/kiln/internal/http/middleware"
	"github.com/davidbz/kiln/internal/ledger"
	"github.com/davidbz/kiln/internal/observability"
	"github.com/davidbz/kiln/internal/provider/echo"
	"github.com/davidbz/kiln/internal/provider/google"
	"github.com/davidbz/kiln/internal/provider/openai"
	"github.com/davidbz/kiln/internal/provider/ratelimit"
	"github.com/davidbz/kiln/internal/provider/registry"
	"github.com/davidbz/kiln/internal/storage"
)

// shutdownHooks collects resources released when a command exits.
type shutdownHooks struct {
	mu    sync.Mutex
	hooks []func() error
}

func (h *shutdownHooks) add(fn func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}

func (h *shutdownHooks) addCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		h.add(c.Close)
	}
}

// run releases resources in reverse registration order.
func (h *shutdownHooks) run() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for i := len(h.hooks) - 1; i >= 0; i-- {
		if err := h.hooks[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.hooks = nil
	return errors.Join(errs...)
}

// backends holds the generation back ends enabled by configuration.
type backends struct {
	synthesizers   []domain.SpeechSynthesizer
	dialogue       domain.DialogueGenerator
	defaultBackend string
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}
	if err := container.Provide(func() *shutdownHooks { return &shutdownHooks{} }); err != nil {
		log.Fatalf("Failed to provide shutdown hooks: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}

	// Cache tiers and ledger
	if err := container.Provide(func(
		_ *zap.Logger,
		cfg *rediscache.Config,
		hooks *shutdownHooks,
	) domain.EphemeralCache {
		tier := cache.NewEphemeralCache(context.Background(), cfg)
		hooks.addCloser(tier)
		return tier
	}); err != nil {
		log.Fatalf("Failed to provide ephemeral cache: %v", err)
	}
	if err := container.Provide(func(
		_ *zap.Logger,
		cfg *storage.Config,
		hooks *shutdownHooks,
	) (domain.DurableStore, error) {
		store, err := storage.NewDurableStore(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create durable store: %w", err)
		}
		hooks.addCloser(store)
		return store, nil
	}); err != nil {
		log.Fatalf("Failed to provide durable store: %v", err)
	}
	if err := container.Provide(func(
		_ *zap.Logger,
		cfg *ledger.Config,
		hooks *shutdownHooks,
	) (domain.EntryLedger, error) {
		l, closeFn, err := ledger.New(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open entry ledger: %w", err)
		}
		hooks.add(closeFn)
		return l, nil
	}); err != nil {
		log.Fatalf("Failed to provide entry ledger: %v", err)
	}

	// Generation back ends
	if err := container.Provide(provideBackends); err != nil {
		log.Fatalf("Failed to provide back ends: %v", err)
	}
	if err := container.Provide(func(b *backends) (domain.SynthesizerRegistry, error) {
		reg := registry.NewRegistry()
		ctx := context.Background()
		for _, s := range b.synthesizers {
			if err := reg.Register(ctx, s); err != nil {
				return nil, fmt.Errorf("failed to register %s back end: %w", s.Name(), err)
			}
		}
		reg.SetDefault(b.defaultBackend)
		return reg, nil
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}
	if err := container.Provide(func(b *backends) domain.DialogueGenerator {
		return b.dialogue
	}); err != nil {
		log.Fatalf("Failed to provide dialogue generator: %v", err)
	}

	// Domain Services
	if err := container.Provide(func(
		ephemeral domain.EphemeralCache,
		durable domain.DurableStore,
		entries domain.EntryLedger,
		cfg *config.CacheConfig,
	) *domain.CacheOrchestrator {
		return domain.NewCacheOrchestrator(ephemeral, durable, entries, cfg.OrchestratorConfig())
	}); err != nil {
		log.Fatalf("Failed to provide cache orchestrator: %v", err)
	}
	if err := container.Provide(func(o *domain.CacheOrchestrator, cfg *config.CacheConfig) *domain.TurnAudioCoordinator {
		return domain.NewTurnAudioCoordinator(o, cfg.TurnConcurrency)
	}); err != nil {
		log.Fatalf("Failed to provide turn audio coordinator: %v", err)
	}
	if err := container.Provide(domain.NewGenerationService); err != nil {
		log.Fatalf("Failed to provide generation service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// provideBackends builds every configured back end. Paid back ends are rate limited;
// the echo back end is always registered.
func provideBackends(
	_ *zap.Logger,
	openaiCfg *openai.Config,
	googleCfg *google.Config,
	limitCfg *ratelimit.Config,
	voices *config.VoicesConfig,
	hooks *shutdownHooks,
) (*backends, error) {
	ctx := context.Background()
	logger := observability.FromContext(ctx)
	limiter := ratelimit.NewLimiter(*limitCfg)

	echoProvider := echo.NewProvider()
	b := &backends{
		synthesizers:   []domain.SpeechSynthesizer{echoProvider},
		dialogue:       echoProvider,
		defaultBackend: echoProvider.Name(),
	}

	if openaiCfg.APIKey != "" {
		p, err := openai.NewProvider(*openaiCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI back end: %w", err)
		}
		b.synthesizers = append(b.synthesizers, ratelimit.WrapSynthesizer(p, limiter))
		b.dialogue = ratelimit.WrapDialogueGenerator(p, limiter)
		b.defaultBackend = p.Name()
		logger.Info("OpenAI back end enabled", observability.String("speech_model", openaiCfg.SpeechModel))
	}

	if googleCfg.Enabled {
		p, err := google.NewProvider(ctx, *googleCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google back end: %w", err)
		}
		hooks.add(p.Close)
		b.synthesizers = append(b.synthesizers, ratelimit.WrapSynthesizer(p, limiter))
		logger.Info("Google text-to-speech back end enabled")
	}

	if voices.DefaultBackend != "" {
		b.defaultBackend = voices.DefaultBackend
	}
	logger.Info("dialogue back end selected",
		observability.String("backend", b.dialogue.Name()),
		observability.String("default_voice_backend", b.defaultBackend))
	return b, nil
}
