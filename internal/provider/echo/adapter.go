// Package echo provides a testing back end that echoes its input.
// It implements domain.SpeechSynthesizer and domain.DialogueGenerator without
// making external API calls, providing deterministic output for testing and
// development purposes.
package echo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/observability"
)

const (
	providerName = "echo"
	dialogueSize = 4
)

// audioHeader marks echo output as an ID3-tagged MP3 stream.
var audioHeader = []byte("ID3\x04\x00\x00\x00\x00\x00\x00")

// Provider implements speech synthesis and dialogue generation for echo testing.
type Provider struct {
	name  string
	delay time.Duration
}

// NewProvider creates a new echo provider.
// No configuration is required as this provider operates entirely in-memory.
func NewProvider() *Provider {
	return &Provider{name: providerName}
}

// WithDelay makes every call take at least d, honoring cancellation.
func (p *Provider) WithDelay(d time.Duration) *Provider {
	p.delay = d
	return p
}

// Synthesize returns a fake MP3 payload that embeds voice and text.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).Debug("echoing speech",
		observability.String("voice", voice))

	payload := make([]byte, 0, len(audioHeader)+len(voice)+len(text)+1)
	payload = append(payload, audioHeader...)
	payload = append(payload, voice...)
	payload = append(payload, '|')
	payload = append(payload, text...)
	return payload, nil
}

// GenerateDialogue returns a fixed-shape dialogue that repeats the topic.
func (p *Provider) GenerateDialogue(ctx context.Context, topic, promptContext string) ([]domain.Turn, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).Debug("echoing dialogue",
		observability.String("topic", topic))

	speakers := []string{"A", "B"}
	turns := make([]domain.Turn, dialogueSize)
	for i := range turns {
		text := fmt.Sprintf("%s %d", topic, i+1)
		if promptContext != "" {
			text += " (" + strings.TrimSpace(promptContext) + ")"
		}
		turns[i] = domain.Turn{
			Index:       i,
			Speaker:     speakers[i%len(speakers)],
			Text:        text,
			Translation: "echo: " + text,
		}
	}
	return turns, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
