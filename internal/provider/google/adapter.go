// Package google provides a speech back end on Google Cloud Text-to-Speech.
package google

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"

	"github.com/davidbz/kiln/internal/observability"
)

const (
	providerName = "google"

	// The API rejects inputs over 5000 bytes.
	maxChunkBytes = 4800
)

type speechClient interface {
	SynthesizeSpeech(
		ctx context.Context,
		req *texttospeechpb.SynthesizeSpeechRequest,
		opts ...gax.CallOption,
	) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// Provider implements domain.SpeechSynthesizer for Google Cloud Text-to-Speech.
type Provider struct {
	client       speechClient
	languageCode string
	speakingRate float64
}

// NewProvider creates a provider using application default credentials.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return newProvider(client, config), nil
}

func newProvider(client speechClient, config Config) *Provider {
	return &Provider{
		client:       client,
		languageCode: config.LanguageCode,
		speakingRate: config.SpeakingRate,
	}
}

// Synthesize returns MP3 audio for text spoken by voice. Long inputs are
// synthesized in chunks and the MP3 frames concatenated.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	logger := observability.FromContext(ctx)

	chunks := splitIntoChunks(text, maxChunkBytes)
	logger.Debug("calling Google text-to-speech",
		observability.String("voice", voice),
		observability.Int("chunks", len(chunks)))

	var audio bytes.Buffer
	for i, chunk := range chunks {
		//nolint:exhaustruct // optional audio settings stay unset
		req := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: p.languageFor(voice),
				Name:         voice,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
				SpeakingRate:  p.speakingRate,
			},
		}

		resp, err := p.client.SynthesizeSpeech(ctx, req)
		if err != nil {
			logger.Error("Google text-to-speech call failed",
				observability.Int("chunk", i),
				observability.Error(err))
			return nil, fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}
		audio.Write(resp.GetAudioContent())
	}

	if audio.Len() == 0 {
		return nil, errors.New("google text-to-speech returned no audio")
	}
	return audio.Bytes(), nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// Close releases the client connection.
func (p *Provider) Close() error {
	return p.client.Close()
}

// languageFor derives the language code from voice names like "cmn-CN-Wavenet-A".
func (p *Provider) languageFor(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) == 3 && parts[0] != "" && parts[1] != "" {
		return parts[0] + "-" + parts[1]
	}
	return p.languageCode
}

// splitIntoChunks splits text into pieces of at most limit bytes, preferring
// to break after sentence punctuation or whitespace.
func splitIntoChunks(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}

		if brk := lastBreak(text[:cut]); brk > 0 {
			cut = brk
		}

		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// lastBreak returns the byte offset just past the last break rune in s, or 0.
func lastBreak(s string) int {
	for i := len(s); i > 0; {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		if unicode.IsSpace(r) || strings.ContainsRune("。！？；，.!?;,", r) {
			return i
		}
		i -= size
	}
	return 0
}
