package domain

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/davidbz/kiln/internal/observability"
)

const defaultTurnConcurrency = 4

// TurnAudio is the outcome of one turn's audio generation.
type TurnAudio struct {
	Index  int          `json:"index"`
	Result *AudioResult `json:"result,omitempty"`
	Err    error        `json:"-"`
	Error  string       `json:"error,omitempty"`
}

// Succeeded reports whether the turn produced audio.
func (t TurnAudio) Succeeded() bool {
	return t.Err == nil && t.Result != nil
}

// ConversationAudio aggregates per-turn audio results. Partial success is normal.
type ConversationAudio struct {
	ConversationID string      `json:"conversation_id"`
	VoiceID        string      `json:"voice_id"`
	Turns          []TurnAudio `json:"turns"`
}

// Succeeded returns the indexes of turns that produced audio.
func (c *ConversationAudio) Succeeded() []int {
	var out []int
	for _, t := range c.Turns {
		if t.Succeeded() {
			out = append(out, t.Index)
		}
	}
	return out
}

// Failed returns the indexes of turns that failed.
func (c *ConversationAudio) Failed() []int {
	var out []int
	for _, t := range c.Turns {
		if !t.Succeeded() {
			out = append(out, t.Index)
		}
	}
	return out
}

// TurnAudioCoordinator generates the audio of every turn of a conversation.
type TurnAudioCoordinator struct {
	orchestrator *CacheOrchestrator
	concurrency  int
}

// NewTurnAudioCoordinator creates a coordinator running at most concurrency turns at once.
func NewTurnAudioCoordinator(orchestrator *CacheOrchestrator, concurrency int) *TurnAudioCoordinator {
	if concurrency <= 0 {
		concurrency = defaultTurnConcurrency
	}
	return &TurnAudioCoordinator{
		orchestrator: orchestrator,
		concurrency:  concurrency,
	}
}

// Generate resolves every turn through the orchestrator and returns once all have finished.
func (c *TurnAudioCoordinator) Generate(
	ctx context.Context,
	conv *Conversation,
	voiceID string,
	synthesizer SpeechSynthesizer,
	backendVoice string,
) *ConversationAudio {
	out := &ConversationAudio{
		ConversationID: conv.ID,
		VoiceID:        voiceID,
		Turns:          make([]TurnAudio, len(conv.Turns)),
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, turn := range conv.Turns {
		g.Go(func() error {
			result, err := c.GenerateTurn(ctx, conv.ID, turn, voiceID, synthesizer, backendVoice)
			out.Turns[i] = TurnAudio{Index: turn.Index, Result: result, Err: err}
			if err != nil {
				out.Turns[i].Error = err.Error()
			}
			// Failures are reported per turn, never as a group error.
			return nil
		})
	}
	_ = g.Wait()

	logger := observability.FromContext(ctx)
	logger.Info("conversation audio resolved",
		observability.String("conversation_id", conv.ID),
		observability.Int("turns", len(conv.Turns)),
		observability.Int("failed", len(out.Failed())))

	return out
}

// GenerateTurn resolves the audio of a single turn.
func (c *TurnAudioCoordinator) GenerateTurn(
	ctx context.Context,
	conversationID string,
	turn Turn,
	voiceID string,
	synthesizer SpeechSynthesizer,
	backendVoice string,
) (*AudioResult, error) {
	req := TurnAudioRequest{
		ConversationID: conversationID,
		TurnIndex:      turn.Index,
		VoiceID:        voiceID,
		Text:           turn.Text,
	}

	artifact, err := c.orchestrator.GetOrGenerate(ctx, req, synthesize(synthesizer, turn.Text, backendVoice))
	if err != nil {
		return nil, err
	}
	return audioResult(artifact), nil
}

// synthesize binds a speech back-end call to a GenerateFunc.
func synthesize(synthesizer SpeechSynthesizer, text, backendVoice string) GenerateFunc {
	return func(ctx context.Context, _ CacheKey) ([]byte, error) {
		audio, err := synthesizer.Synthesize(ctx, text, backendVoice)
		if err != nil {
			return nil, asBackendError(synthesizer.Name(), err)
		}
		return audio, nil
	}
}

func audioResult(a *Artifact) *AudioResult {
	return &AudioResult{
		Key:         a.Key,
		URL:         a.Location,
		ContentType: a.ContentType,
		Cached:      a.Cached,
		Data:        a.Data,
	}
}
