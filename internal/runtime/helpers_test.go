package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"
	"github.com/aretw0/chatflow/pkg/provider"
)

// fakeOpenAI generates text and transcribes speech.
type fakeOpenAI struct {
	reply      string
	transcript string
	err        error
	calls      int
	lastText   provider.TextRequest
	lastAudio  provider.TranscriptionRequest
}

func (f *fakeOpenAI) GenerateText(_ context.Context, req provider.TextRequest) (string, error) {
	f.calls++
	f.lastText = req
	return f.reply, f.err
}

func (f *fakeOpenAI) TranscribeSpeech(_ context.Context, req provider.TranscriptionRequest) (string, error) {
	f.calls++
	f.lastAudio = req
	return f.transcript, f.err
}

// fakeMinimax synthesizes speech.
type fakeMinimax struct {
	url   string
	err   error
	calls int
	last  provider.SpeechRequest
}

func (f *fakeMinimax) SynthesizeSpeech(_ context.Context, req provider.SpeechRequest) (domain.AudioRef, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return domain.AudioRef{}, f.err
	}
	return domain.AudioRef{URL: f.url, MimeType: "audio/mpeg"}, nil
}

type templateMap map[string]*domain.FlowGraph

func (m templateMap) GetPublishedGraph(_ context.Context, id string) (*domain.FlowGraph, error) {
	g, ok := m[id]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	if !g.Published() {
		return nil, domain.ErrTemplateNotPublished
	}
	return g, nil
}

type fixture struct {
	engine    *runtime.Engine
	openai    *fakeOpenAI
	minimax   *fakeMinimax
	templates templateMap
}

func newFixture(t *testing.T, opts ...runtime.EngineOption) *fixture {
	t.Helper()
	f := &fixture{
		openai:    &fakeOpenAI{reply: "generated"},
		minimax:   &fakeMinimax{url: "https://cdn.test/a.mp3"},
		templates: templateMap{},
	}
	reg := provider.NewRegistry()
	if err := reg.Register(domain.ProviderOpenAI, f.openai); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(domain.ProviderMinimax, f.minimax); err != nil {
		t.Fatal(err)
	}

	base := []runtime.EngineOption{
		runtime.WithRetryPolicy(provider.Policy{Timeout: time.Second, MaxRetries: 1, Backoff: time.Millisecond}),
	}
	f.engine = runtime.NewEngine(f.templates, reg, append(base, opts...)...)
	return f
}

func mustLoad(t *testing.T, doc string) *domain.FlowGraph {
	t.Helper()
	g, err := graph.Load([]byte(doc))
	if err != nil {
		t.Fatalf("load graph: %v", err)
	}
	return g
}

func newSession(t *testing.T, g *domain.FlowGraph, vars map[string]any) *domain.Session {
	t.Helper()
	start, ok := g.Start()
	if !ok {
		t.Fatal("graph has no start node")
	}
	s := domain.NewSession("sess-"+t.Name(), g.TemplateID, start.ID, time.Now())
	for k, v := range vars {
		s.Variables[k] = v
	}
	return s
}

func texts(items []domain.DeliveryItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Kind == domain.DeliveryText {
			out = append(out, it.Text)
		}
	}
	return out
}
