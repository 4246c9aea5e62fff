package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownProvider is returned when no adapter is registered under a name.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrUnsupported is returned when an adapter lacks the requested capability.
	ErrUnsupported = errors.New("capability not supported by provider")
)

// Registry maps provider names (the node's provider field) to adapters.
// An adapter implements any subset of the capability interfaces.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]any)}
}

// Register binds name to adapter, replacing any previous binding.
func (r *Registry) Register(name string, adapter any) error {
	switch adapter.(type) {
	case TextGenerator, SpeechSynthesizer, SpeechTranscriber:
	default:
		return fmt.Errorf("provider %q implements no capability", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = adapter
	return nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) get(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return adapter, nil
}

// TextGenerator returns the text capability of the named provider.
func (r *Registry) TextGenerator(name string) (TextGenerator, error) {
	return lookup[TextGenerator](r, name, CapabilityText)
}

// SpeechSynthesizer returns the synthesis capability of the named provider.
func (r *Registry) SpeechSynthesizer(name string) (SpeechSynthesizer, error) {
	return lookup[SpeechSynthesizer](r, name, CapabilitySpeech)
}

// SpeechTranscriber returns the transcription capability of the named provider.
func (r *Registry) SpeechTranscriber(name string) (SpeechTranscriber, error) {
	return lookup[SpeechTranscriber](r, name, CapabilityTranscription)
}

func lookup[T any](r *Registry, name, capability string) (T, error) {
	var zero T
	adapter, err := r.get(name)
	if err != nil {
		return zero, err
	}
	c, ok := adapter.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s does not %s", ErrUnsupported, name, capability)
	}
	return c, nil
}
