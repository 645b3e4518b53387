// Package openai provides speech and dialogue back ends on the OpenAI API
// using the official SDK. The provider implements both
// domain.SpeechSynthesizer and domain.DialogueGenerator.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/observability"
)

const (
	providerName = "openai"

	defaultSpeechModel   = "tts-1"
	defaultDialogueModel = "gpt-4o-mini"
)

// Provider implements speech synthesis and dialogue generation for OpenAI.
type Provider struct {
	client        openai.Client
	name          string
	speechModel   string
	dialogueModel string
	temperature   float64
}

// NewProvider creates a new OpenAI provider.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(max(config.MaxRetries, 0)),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	speechModel := config.SpeechModel
	if speechModel == "" {
		speechModel = defaultSpeechModel
	}
	dialogueModel := config.DialogueModel
	if dialogueModel == "" {
		dialogueModel = defaultDialogueModel
	}

	return &Provider{
		client:        openai.NewClient(opts...),
		name:          providerName,
		speechModel:   speechModel,
		dialogueModel: dialogueModel,
		temperature:   config.Temperature,
	}, nil
}

// Synthesize returns MP3 audio for text spoken by voice.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI speech API",
		observability.String("voice", voice),
		observability.Int("chars", len([]rune(text))))

	//nolint:exhaustruct // optional speech params stay unset
	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(p.speechModel),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		logger.Error("OpenAI speech call failed", observability.Error(err))
		return nil, fmt.Errorf("OpenAI speech call failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAI speech response: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("OpenAI speech response was empty")
	}

	logger.Debug("OpenAI speech call succeeded", observability.Int("bytes", len(audio)))
	return audio, nil
}

// GenerateDialogue asks the chat model for a dialogue about topic.
func (p *Provider) GenerateDialogue(ctx context.Context, topic, promptContext string) ([]domain.Turn, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI chat API", observability.String("model", p.dialogueModel))

	//nolint:exhaustruct // optional chat params stay unset
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.dialogueModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(dialogueSystemPrompt),
			openai.UserMessage(dialogueUserPrompt(topic, promptContext)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if p.temperature > 0 {
		params.Temperature = openai.Float(p.temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("OpenAI chat call failed", observability.Error(err))
		return nil, fmt.Errorf("OpenAI chat call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", domain.ErrMalformedOutput)
	}

	logger.Debug("OpenAI chat call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
	)

	return parseDialogue(resp.Choices[0].Message.Content)
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}
