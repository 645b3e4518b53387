package domain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/davidbz/kiln/internal/observability"
)

const (
	maxTextLength  = 4096
	maxTopicLength = 256
	cacheKeyLength = 64
)

// GenerationService is the caller-facing API of the generation cache engine.
type GenerationService struct {
	orchestrator *CacheOrchestrator
	turns        *TurnAudioCoordinator
	voices       SynthesizerRegistry
	dialogue     DialogueGenerator
}

// NewGenerationService creates a new generation service (DI constructor).
func NewGenerationService(
	orchestrator *CacheOrchestrator,
	turns *TurnAudioCoordinator,
	voices SynthesizerRegistry,
	dialogue DialogueGenerator,
) *GenerationService {
	return &GenerationService{
		orchestrator: orchestrator,
		turns:        turns,
		voices:       voices,
		dialogue:     dialogue,
	}
}

// GetOrGenerateAudio returns speech audio for text spoken by voiceID.
func (s *GenerationService) GetOrGenerateAudio(ctx context.Context, text, voiceID string) (*AudioResult, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	synthesizer, backendVoice, canonicalVoice, err := s.resolveVoice(ctx, voiceID)
	if err != nil {
		return nil, err
	}

	req := SpeechRequest{Text: text, VoiceID: canonicalVoice}
	artifact, err := s.orchestrator.GetOrGenerate(ctx, req, synthesize(synthesizer, text, backendVoice))
	if err != nil {
		return nil, err
	}
	return audioResult(artifact), nil
}

// GetOrGenerateDialogueText returns the dialogue generated for topic.
func (s *GenerationService) GetOrGenerateDialogueText(
	ctx context.Context,
	topic, promptContext string,
) (*DialogueResult, error) {
	topic = CanonicalizePrompt(topic)
	promptContext = CanonicalizePrompt(promptContext)

	if topic == "" {
		return nil, NewValidationError("topic", "cannot be empty")
	}
	if utf8.RuneCountInString(topic) > maxTopicLength {
		return nil, NewValidationError("topic", fmt.Sprintf("exceeds %d characters", maxTopicLength))
	}
	if s.dialogue == nil {
		return nil, &BackendError{Backend: "dialogue", Err: errors.New("no dialogue generator configured")}
	}

	req := DialogueRequest{Topic: topic, Context: promptContext}
	artifact, err := s.orchestrator.GetOrGenerate(ctx, req, func(ctx context.Context, key CacheKey) ([]byte, error) {
		turns, genErr := s.dialogue.GenerateDialogue(ctx, topic, promptContext)
		if genErr != nil {
			return nil, asBackendError(s.dialogue.Name(), genErr)
		}
		turns, genErr = normalizeTurns(turns)
		if genErr != nil {
			return nil, &BackendError{Backend: s.dialogue.Name(), Err: genErr}
		}
		return json.Marshal(Conversation{ID: string(key), Topic: topic, Turns: turns})
	})
	if err != nil {
		return nil, err
	}

	conv, err := decodeConversation(artifact.Data)
	if err != nil {
		return nil, &BackendError{Backend: s.dialogue.Name(), Err: err}
	}

	return &DialogueResult{
		Conversation: conv,
		URL:          artifact.Location,
		Cached:       artifact.Cached,
	}, nil
}

// GetOrGenerateTurnAudio returns the audio of one turn of a generated conversation.
func (s *GenerationService) GetOrGenerateTurnAudio(
	ctx context.Context,
	conversationID string,
	turnIndex int,
	voiceID string,
) (*AudioResult, error) {
	if turnIndex < 0 {
		return nil, NewValidationError("turn_index", "cannot be negative")
	}

	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if turnIndex >= len(conv.Turns) {
		return nil, NewValidationError("turn_index",
			fmt.Sprintf("conversation has %d turns", len(conv.Turns)))
	}

	synthesizer, backendVoice, canonicalVoice, err := s.resolveVoice(ctx, voiceID)
	if err != nil {
		return nil, err
	}

	return s.turns.GenerateTurn(ctx, conv.ID, conv.Turns[turnIndex], canonicalVoice, synthesizer, backendVoice)
}

// GetOrGenerateConversationAudio returns per-turn audio for every turn of a conversation.
func (s *GenerationService) GetOrGenerateConversationAudio(
	ctx context.Context,
	conversationID, voiceID string,
) (*ConversationAudio, error) {
	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	synthesizer, backendVoice, canonicalVoice, err := s.resolveVoice(ctx, voiceID)
	if err != nil {
		return nil, err
	}

	return s.turns.Generate(ctx, conv, canonicalVoice, synthesizer, backendVoice), nil
}

// GetCacheMetrics returns the per-namespace counters.
func (s *GenerationService) GetCacheMetrics(_ context.Context) MetricsReport {
	metrics := s.orchestrator.Metrics()
	return MetricsReport{
		Backend:      s.orchestrator.EphemeralBackend(),
		Since:        metrics.Since(),
		PerNamespace: metrics.Snapshot(),
	}
}

// InvalidateNamespace removes every cached artifact of ns.
func (s *GenerationService) InvalidateNamespace(ctx context.Context, ns Namespace) (*InvalidationReport, error) {
	if _, err := ParseNamespace(string(ns)); err != nil {
		return nil, err
	}
	return s.orchestrator.Invalidate(ctx, ns)
}

// conversation resolves a previously generated conversation by ID.
func (s *GenerationService) conversation(ctx context.Context, conversationID string) (*Conversation, error) {
	if !isCacheKey(conversationID) {
		return nil, NewValidationError("conversation_id", "must be a 64 character hex key")
	}

	version := s.orchestrator.Version(NamespaceDialogue)
	partition := DialogueRequest{}.Partition(version)

	artifact, err := s.orchestrator.Lookup(ctx, NamespaceDialogue, partition, CacheKey(conversationID))
	if errors.Is(err, ErrCacheMiss) {
		return nil, NewValidationError("conversation_id", "unknown conversation")
	}
	if err != nil {
		return nil, err
	}

	conv, err := decodeConversation(artifact.Data)
	if err != nil {
		observability.FromContext(ctx).Error("stored conversation is undecodable",
			observability.String("conversation_id", conversationID),
			observability.Error(err))
		return nil, NewValidationError("conversation_id", "conversation cannot be decoded")
	}
	return conv, nil
}

// resolveVoice returns the serving back end, its local voice name and the
// canonical "backend:voice" identifier that cache keys are derived from.
func (s *GenerationService) resolveVoice(
	ctx context.Context,
	voiceID string,
) (SpeechSynthesizer, string, string, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, "", "", NewValidationError("voice", "cannot be empty")
	}
	synthesizer, backendVoice, err := s.voices.GetByVoice(ctx, voiceID)
	if err != nil {
		return nil, "", "", NewValidationError("voice", err.Error())
	}
	return synthesizer, backendVoice, synthesizer.Name() + ":" + backendVoice, nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError("text", "cannot be empty")
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		return NewValidationError("text", fmt.Sprintf("exceeds %d characters", maxTextLength))
	}
	return nil
}

// normalizeTurns renumbers turns and rejects empty dialogue lines.
func normalizeTurns(turns []Turn) ([]Turn, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: dialogue has no turns", ErrMalformedOutput)
	}

	out := make([]Turn, len(turns))
	for i, t := range turns {
		if strings.TrimSpace(t.Text) == "" || strings.TrimSpace(t.Speaker) == "" {
			return nil, fmt.Errorf("%w: turn %d is missing speaker or text", ErrMalformedOutput, i)
		}
		out[i] = Turn{
			Index:       i,
			Speaker:     strings.TrimSpace(t.Speaker),
			Text:        strings.TrimSpace(t.Text),
			Translation: strings.TrimSpace(t.Translation),
		}
	}
	return out, nil
}

func decodeConversation(data []byte) (*Conversation, error) {
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return &conv, nil
}

func isCacheKey(s string) bool {
	if len(s) != cacheKeyLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
