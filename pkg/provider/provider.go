// Package provider defines the capability interfaces that AI and voice backends
// implement, a name-based registry, and the bounded retry policy every call
// goes through.
package provider

import (
	"context"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
)

// Capability names, as reported in ProviderError and lifecycle events.
const (
	CapabilityText          = "generate_text"
	CapabilitySpeech        = "synthesize_speech"
	CapabilityTranscription = "transcribe_speech"
	CapabilityAction        = "action"
)

// TextRequest carries the arguments of GenerateText.
type TextRequest struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   uint

	// KnowledgeBaseRef is empty unless the node enabled its knowledge base.
	KnowledgeBaseRef string
}

// SpeechRequest carries the arguments of SynthesizeSpeech.
type SpeechRequest struct {
	Text    string
	Voice   string
	Emotion string
	Speed   float64
	Vol     float64
	Pitch   int
}

// TranscriptionRequest carries the arguments of TranscribeSpeech.
type TranscriptionRequest struct {
	Audio    domain.AudioRef
	Language string
	Timeout  time.Duration
}

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// SpeechSynthesizer turns text into an audio artifact.
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, req SpeechRequest) (domain.AudioRef, error)
}

// SpeechTranscriber turns an audio artifact into text.
type SpeechTranscriber interface {
	TranscribeSpeech(ctx context.Context, req TranscriptionRequest) (string, error)
}
