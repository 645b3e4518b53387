package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/davidbz/kiln/internal/domain"
)

const voiceDelim = ":"

// Registry implements the SynthesizerRegistry interface.
// Voice identifiers take the form "backend:voice"; a bare voice name resolves
// to the default back end when one is set.
type Registry struct {
	mu             sync.RWMutex
	synthesizers   map[string]domain.SpeechSynthesizer
	defaultBackend string
}

// NewRegistry creates a new synthesizer registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:           sync.RWMutex{},
		synthesizers: make(map[string]domain.SpeechSynthesizer),
	}
}

// SetDefault names the back end serving voice identifiers without a prefix.
func (r *Registry) SetDefault(backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultBackend = backend
}

// Register adds a synthesizer to the registry.
func (r *Registry) Register(_ context.Context, synthesizer domain.SpeechSynthesizer) error {
	if synthesizer == nil {
		return errors.New("synthesizer cannot be nil")
	}

	name := synthesizer.Name()
	if name == "" {
		return errors.New("synthesizer name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.synthesizers[name]; exists {
		return fmt.Errorf("synthesizer %s already registered", name)
	}

	r.synthesizers[name] = synthesizer
	return nil
}

// GetByVoice returns the synthesizer named by the voice prefix and the
// back-end local voice name.
func (r *Registry) GetByVoice(_ context.Context, voiceID string) (domain.SpeechSynthesizer, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, voice, ok := strings.Cut(voiceID, voiceDelim)
	if !ok && r.defaultBackend != "" {
		backend, voice = r.defaultBackend, voiceID
	} else if !ok || backend == "" {
		return nil, "", fmt.Errorf("voice %q must have the form backend:voice", voiceID)
	}
	if voice == "" {
		return nil, "", fmt.Errorf("voice %q has an empty voice name", voiceID)
	}

	synthesizer, exists := r.synthesizers[backend]
	if !exists {
		return nil, "", fmt.Errorf("no synthesizer registered for voice %s", voiceID)
	}

	return synthesizer, voice, nil
}

// List returns all registered back-end names in sorted order.
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.synthesizers))
	for name := range r.synthesizers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}
