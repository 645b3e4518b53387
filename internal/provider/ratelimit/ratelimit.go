// Package ratelimit wraps generation back ends with a token-bucket limiter.
// Waiting for a token honors context cancellation.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/davidbz/kiln/internal/domain"
)

// NewLimiter returns a limiter for cfg, or nil when limiting is disabled.
func NewLimiter(cfg Config) *rate.Limiter {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	burst := max(cfg.Burst, 1)
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), burst)
}

// Synthesizer limits calls to a domain.SpeechSynthesizer.
type Synthesizer struct {
	next    domain.SpeechSynthesizer
	limiter *rate.Limiter
}

// WrapSynthesizer returns next guarded by limiter. A nil limiter returns next unchanged.
func WrapSynthesizer(next domain.SpeechSynthesizer, limiter *rate.Limiter) domain.SpeechSynthesizer {
	if limiter == nil {
		return next
	}
	return &Synthesizer{next: next, limiter: limiter}
}

// Synthesize waits for a token then delegates.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return s.next.Synthesize(ctx, text, voiceID)
}

// Name returns the wrapped back-end name.
func (s *Synthesizer) Name() string {
	return s.next.Name()
}

// DialogueGenerator limits calls to a domain.DialogueGenerator.
type DialogueGenerator struct {
	next    domain.DialogueGenerator
	limiter *rate.Limiter
}

// WrapDialogueGenerator returns next guarded by limiter. A nil limiter returns next unchanged.
func WrapDialogueGenerator(next domain.DialogueGenerator, limiter *rate.Limiter) domain.DialogueGenerator {
	if limiter == nil {
		return next
	}
	return &DialogueGenerator{next: next, limiter: limiter}
}

// GenerateDialogue waits for a token then delegates.
func (g *DialogueGenerator) GenerateDialogue(ctx context.Context, topic, promptContext string) ([]domain.Turn, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return g.next.GenerateDialogue(ctx, topic, promptContext)
}

// Name returns the wrapped back-end name.
func (g *DialogueGenerator) Name() string {
	return g.next.Name()
}
