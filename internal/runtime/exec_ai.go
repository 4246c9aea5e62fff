package runtime

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/aretw0/chatflow/pkg/vars"
)

func (e *Engine) execAI(ctx context.Context, p *pass, node *domain.Node, cfg *domain.AIConfig) (result, error) {
	text, err := e.generateText(ctx, p, node, cfg)
	if err != nil {
		return result{}, err
	}

	res := result{handle: domain.HandleDefault, suspend: cfg.WaitForResponse, aiText: text}
	if text != "" {
		res.items = []domain.DeliveryItem{domain.TextItem(node.ID, text, cfg.DelayMs)}
	}
	res.write(cfg.ResponseVariableName, text)
	return res, nil
}

func (e *Engine) execTTS(ctx context.Context, p *pass, node *domain.Node, cfg *domain.TTSConfig) (result, error) {
	text := vars.Resolve(cfg.Text, p.session.Variables)
	if cfg.SourceIsAINode && p.session.LastAIText != "" && previousWasAI(p) {
		text = p.session.LastAIText
	}

	res := result{handle: domain.HandleDefault}
	if text == "" {
		e.logger.Warn("tts node has no text to speak", "session_id", p.session.ID, "node_id", node.ID)
		return res, nil
	}

	ref, err := e.synthesize(ctx, p, node, cfg.Provider, text, cfg.VoiceSettings)
	if err != nil {
		return result{}, err
	}
	res.items = []domain.DeliveryItem{domain.AudioItem(node.ID, ref, 0)}
	res.write(cfg.OutputVariableName, ref.URL)
	return res, nil
}

// execAIVoice generates and speaks a reply as one step: either both artifacts
// are delivered or neither is.
func (e *Engine) execAIVoice(ctx context.Context, p *pass, node *domain.Node, cfg *domain.AIVoiceConfig) (result, error) {
	text, err := e.generateText(ctx, p, node, &cfg.AIConfig)
	if err != nil {
		return result{}, err
	}

	res := result{handle: domain.HandleDefault, suspend: cfg.WaitForResponse, aiText: text}
	res.write(cfg.ResponseVariableName, text)
	if text == "" {
		return res, nil
	}

	ref, err := e.synthesize(ctx, p, node, cfg.VoiceProvider, text, cfg.VoiceSettings)
	if err != nil {
		return result{}, err
	}
	res.items = []domain.DeliveryItem{
		domain.TextItem(node.ID, text, cfg.DelayMs),
		domain.AudioItem(node.ID, ref, 0),
	}
	res.write(cfg.OutputVariableName, ref.URL)
	return res, nil
}

func (e *Engine) generateText(ctx context.Context, p *pass, node *domain.Node, cfg *domain.AIConfig) (string, error) {
	if cfg.Mode == domain.ModeStatic {
		return cfg.Prompt, nil
	}

	gen, err := e.providers.TextGenerator(cfg.Provider)
	if err != nil {
		return "", unavailable(cfg.Provider, provider.CapabilityText, err)
	}

	req := provider.TextRequest{
		Prompt:      vars.Resolve(cfg.Prompt, p.session.Variables),
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	if cfg.UseKnowledgeBase {
		req.KnowledgeBaseRef = cfg.KnowledgeBaseID
		if req.KnowledgeBaseRef == "" {
			req.KnowledgeBaseRef = p.graph.TemplateID
		}
	}

	return callProvider(ctx, e, p, node, e.policy, cfg.Provider, provider.CapabilityText,
		func(ctx context.Context) (string, error) {
			return gen.GenerateText(ctx, req)
		})
}

func (e *Engine) synthesize(ctx context.Context, p *pass, node *domain.Node, name, text string, vs domain.VoiceSettings) (domain.AudioRef, error) {
	synth, err := e.providers.SpeechSynthesizer(name)
	if err != nil {
		return domain.AudioRef{}, unavailable(name, provider.CapabilitySpeech, err)
	}

	req := provider.SpeechRequest{
		Text:    text,
		Voice:   vs.Voice,
		Emotion: vs.Emotion,
		Speed:   vs.Speed,
		Vol:     vs.Vol,
		Pitch:   vs.Pitch,
	}
	return callProvider(ctx, e, p, node, e.policy, name, provider.CapabilitySpeech,
		func(ctx context.Context) (domain.AudioRef, error) {
			return synth.SynthesizeSpeech(ctx, req)
		})
}

// previousWasAI reports whether the node executed just before the current one
// is an ai or ai-voice-agent node of the current graph.
func previousWasAI(p *pass) bool {
	h := p.session.History
	if len(h) == 0 {
		return false
	}
	prev, ok := p.graph.Node(h[len(h)-1])
	return ok && (prev.Type == domain.NodeTypeAI || prev.Type == domain.NodeTypeAIVoiceAgent)
}
