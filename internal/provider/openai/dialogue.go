package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davidbz/kiln/internal/domain"
)

const dialogueSystemPrompt = `You write short Mandarin Chinese dialogues for language learners.
Reply with a JSON object of the form
{"turns": [{"speaker": "A", "text": "...", "translation": "..."}]}
where "text" is the Chinese line and "translation" is its English translation.
Alternate between two speakers and write between 4 and 10 turns.`

type dialoguePayload struct {
	Turns []turnPayload `json:"turns"`
}

type turnPayload struct {
	Speaker     string `json:"speaker"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

func dialogueUserPrompt(topic, promptContext string) string {
	if promptContext == "" {
		return "Topic: " + topic
	}
	return "Topic: " + topic + "\nContext: " + promptContext
}

// parseDialogue decodes model output into turns. Code fences around the JSON are tolerated.
func parseDialogue(content string) ([]domain.Turn, error) {
	content = stripCodeFence(content)

	var payload dialoguePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	if len(payload.Turns) == 0 {
		return nil, fmt.Errorf("%w: dialogue has no turns", domain.ErrMalformedOutput)
	}

	turns := make([]domain.Turn, len(payload.Turns))
	for i, t := range payload.Turns {
		turns[i] = domain.Turn{
			Index:       i,
			Speaker:     strings.TrimSpace(t.Speaker),
			Text:        strings.TrimSpace(t.Text),
			Translation: strings.TrimSpace(t.Translation),
		}
	}
	return turns, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
