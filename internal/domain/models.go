package domain

import (
	"strconv"
	"time"
)

// Namespace tags a family of cached artifacts.
type Namespace string

const (
	// NamespaceSpeech holds synthesized audio for free text.
	NamespaceSpeech Namespace = "tts"

	// NamespaceDialogue holds generated dialogue text.
	NamespaceDialogue Namespace = "conv-text"

	// NamespaceTurnAudio holds synthesized audio for a single dialogue turn.
	NamespaceTurnAudio Namespace = "conv-audio"
)

const (
	// ContentTypeAudio is the MIME type of every audio artifact.
	ContentTypeAudio = "audio/mpeg"

	// ContentTypeDialogue is the MIME type of dialogue artifacts.
	ContentTypeDialogue = "application/json"
)

// Namespaces returns every known namespace.
func Namespaces() []Namespace {
	return []Namespace{NamespaceSpeech, NamespaceDialogue, NamespaceTurnAudio}
}

// ParseNamespace validates a namespace tag.
func ParseNamespace(s string) (Namespace, error) {
	for _, ns := range Namespaces() {
		if string(ns) == s {
			return ns, nil
		}
	}
	return "", NewValidationError("namespace", "unknown namespace "+strconv.Quote(s))
}

// ContentType returns the MIME type of artifacts stored under the namespace.
func (n Namespace) ContentType() string {
	if n == NamespaceDialogue {
		return ContentTypeDialogue
	}
	return ContentTypeAudio
}

// CacheKey is a hex-encoded SHA-256 digest identifying one artifact.
type CacheKey string

// String returns the key as a string.
func (k CacheKey) String() string {
	return string(k)
}

// GenerationRequest is the immutable input of one generation.
type GenerationRequest interface {
	// Namespace returns the namespace the artifact belongs to.
	Namespace() Namespace

	// Partition returns the stable durable path segment grouping related artifacts.
	Partition(version string) string

	// CanonicalFields returns the ordered fields hashed into the cache key.
	CanonicalFields() []string
}

// SpeechRequest asks for synthesized audio of free text.
type SpeechRequest struct {
	Text    string
	VoiceID string
}

// Namespace returns NamespaceSpeech.
func (r SpeechRequest) Namespace() Namespace { return NamespaceSpeech }

// Partition groups speech artifacts by voice.
func (r SpeechRequest) Partition(_ string) string { return sanitizeSegment(r.VoiceID) }

// CanonicalFields returns the exact text and voice.
func (r SpeechRequest) CanonicalFields() []string {
	return []string{"text", r.Text, "voice", r.VoiceID}
}

// DialogueRequest asks for a generated dialogue about a topic.
type DialogueRequest struct {
	Topic   string
	Context string
}

// Namespace returns NamespaceDialogue.
func (r DialogueRequest) Namespace() Namespace { return NamespaceDialogue }

// Partition groups dialogues by generator version so IDs resolve without the topic.
func (r DialogueRequest) Partition(version string) string { return sanitizeSegment(version) }

// CanonicalFields returns the canonicalized topic and context.
func (r DialogueRequest) CanonicalFields() []string {
	return []string{"topic", CanonicalizePrompt(r.Topic), "context", CanonicalizePrompt(r.Context)}
}

// TurnAudioRequest asks for synthesized audio of one dialogue turn.
type TurnAudioRequest struct {
	ConversationID string
	TurnIndex      int
	VoiceID        string
	Text           string
}

// Namespace returns NamespaceTurnAudio.
func (r TurnAudioRequest) Namespace() Namespace { return NamespaceTurnAudio }

// Partition groups turn audio by conversation.
func (r TurnAudioRequest) Partition(_ string) string { return sanitizeSegment(r.ConversationID) }

// CanonicalFields returns the parent conversation, turn index, voice and text.
func (r TurnAudioRequest) CanonicalFields() []string {
	return []string{
		"conversation", r.ConversationID,
		"turn", strconv.Itoa(r.TurnIndex),
		"voice", r.VoiceID,
		"text", r.Text,
	}
}

// Artifact is a generated or cached result.
// Data is shared between concurrent callers and must not be modified.
type Artifact struct {
	Key         CacheKey
	Namespace   Namespace
	Path        string
	Location    string
	ContentType string
	Version     string
	Data        []byte
	CreatedAt   time.Time
	Cached      bool
}

// Durable reports whether the artifact was persisted to the durable tier.
func (a *Artifact) Durable() bool {
	return a.Location != ""
}

// CacheEntry is the record stored in the ephemeral tier.
type CacheEntry struct {
	Data        []byte    `json:"data"`
	ContentType string    `json:"content_type"`
	Version     string    `json:"version"`
	Path        string    `json:"path"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Turn is one line of a generated dialogue.
type Turn struct {
	Index       int    `json:"index"`
	Speaker     string `json:"speaker"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// Conversation is a generated dialogue. ID is the dialogue cache key.
type Conversation struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
	Turns []Turn `json:"turns"`
}

// AudioResult is returned for audio generations.
type AudioResult struct {
	Key         CacheKey `json:"key"`
	URL         string   `json:"url,omitempty"`
	ContentType string   `json:"content_type"`
	Cached      bool     `json:"cached"`
	Data        []byte   `json:"-"`
}

// DialogueResult is returned for dialogue generations.
type DialogueResult struct {
	Conversation *Conversation `json:"conversation"`
	URL          string        `json:"url,omitempty"`
	Cached       bool          `json:"cached"`
}

// InvalidationReport summarizes an operator-triggered namespace invalidation.
type InvalidationReport struct {
	Namespace        Namespace `json:"namespace"`
	EphemeralRemoved int       `json:"ephemeral_removed"`
	DurableRemoved   int       `json:"durable_removed"`
	LedgerRemoved    int       `json:"ledger_removed"`
}
