package google

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	requests []*texttospeechpb.SynthesizeSpeechRequest
	err      error
}

func (f *fakeClient) SynthesizeSpeech(
	_ context.Context,
	req *texttospeechpb.SynthesizeSpeechRequest,
	_ ...gax.CallOption,
) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("mp3")}, nil
}

func (f *fakeClient) Close() error { return nil }

func TestProvider_Synthesize(t *testing.T) {
	t.Run("should request mp3 with derived language code", func(t *testing.T) {
		client := &fakeClient{}
		provider := newProvider(client, Config{LanguageCode: "cmn-CN", SpeakingRate: 1})

		audio, err := provider.Synthesize(context.Background(), "你好", "cmn-TW-Wavenet-A")
		require.NoError(t, err)
		require.Equal(t, []byte("mp3"), audio)

		require.Len(t, client.requests, 1)
		req := client.requests[0]
		require.Equal(t, "cmn-TW", req.GetVoice().GetLanguageCode())
		require.Equal(t, "cmn-TW-Wavenet-A", req.GetVoice().GetName())
		require.Equal(t, texttospeechpb.AudioEncoding_MP3, req.GetAudioConfig().GetAudioEncoding())
		require.Equal(t, "你好", req.GetInput().GetText())
	})

	t.Run("should fall back to configured language code", func(t *testing.T) {
		client := &fakeClient{}
		provider := newProvider(client, Config{LanguageCode: "cmn-CN"})

		_, err := provider.Synthesize(context.Background(), "你好", "custom")
		require.NoError(t, err)
		require.Equal(t, "cmn-CN", client.requests[0].GetVoice().GetLanguageCode())
	})

	t.Run("should concatenate chunked audio", func(t *testing.T) {
		client := &fakeClient{}
		provider := newProvider(client, Config{LanguageCode: "cmn-CN"})

		text := strings.Repeat("你好。", 1000)
		audio, err := provider.Synthesize(context.Background(), text, "cmn-CN-Wavenet-A")
		require.NoError(t, err)
		require.Greater(t, len(client.requests), 1)
		require.Len(t, audio, 3*len(client.requests))
	})

	t.Run("should return client errors", func(t *testing.T) {
		client := &fakeClient{err: errors.New("quota exceeded")}
		provider := newProvider(client, Config{})

		_, err := provider.Synthesize(context.Background(), "你好", "cmn-CN-Wavenet-A")
		require.ErrorContains(t, err, "quota exceeded")
	})
}

func TestSplitIntoChunks(t *testing.T) {
	t.Run("should keep short text whole", func(t *testing.T) {
		require.Equal(t, []string{"你好"}, splitIntoChunks("你好", 100))
	})

	t.Run("should split on rune boundaries within limit", func(t *testing.T) {
		text := strings.Repeat("好", 100)
		chunks := splitIntoChunks(text, 10)

		require.Equal(t, text, strings.Join(chunks, ""))
		for _, c := range chunks {
			require.LessOrEqual(t, len(c), 10)
			require.True(t, utf8.ValidString(c))
		}
	})

	t.Run("should prefer sentence breaks", func(t *testing.T) {
		chunks := splitIntoChunks("你好。谢谢你", 12)
		require.Equal(t, "你好。", chunks[0])
	})
}
