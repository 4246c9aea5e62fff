package runtime

import (
	"context"
	"strings"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/aretw0/chatflow/pkg/vars"
)

func prompt(p *pass, node *domain.Node, template string) []domain.DeliveryItem {
	text := vars.Resolve(template, p.session.Variables)
	if text == "" {
		return nil
	}
	return []domain.DeliveryItem{domain.TextItem(node.ID, text, 0)}
}

func (e *Engine) execInput(p *pass, node *domain.Node, cfg *domain.InputConfig) result {
	return result{items: prompt(p, node, cfg.Prompt), suspend: true}
}

func (e *Engine) resumeInput(p *pass, node *domain.Node, cfg *domain.InputConfig, in domain.Inbound) result {
	raw := strings.TrimSpace(in.Text)
	if raw == "" && in.Audio != nil {
		return result{
			items:     prompt(p, node, cfg.Prompt),
			rejection: &domain.InputValidationError{NodeID: node.ID, Value: in.Audio.URL, Reason: "expected a text answer"},
		}
	}

	value, reason := validateInput(cfg, raw)
	if reason != "" {
		return result{
			items:     prompt(p, node, cfg.Prompt),
			rejection: &domain.InputValidationError{NodeID: node.ID, Value: raw, Reason: reason},
		}
	}

	res := result{handle: domain.HandleDefault}
	res.write(cfg.VariableName, value)
	return res
}

func (e *Engine) execSTT(p *pass, node *domain.Node, cfg *domain.STTConfig) result {
	return result{items: prompt(p, node, cfg.Prompt), suspend: true}
}

func (e *Engine) resumeSTT(ctx context.Context, p *pass, node *domain.Node, cfg *domain.STTConfig, in domain.Inbound) (result, error) {
	if in.Audio == nil || in.Audio.URL == "" {
		return result{
			items:     prompt(p, node, cfg.Prompt),
			rejection: &domain.InputValidationError{NodeID: node.ID, Value: in.Text, Reason: "expected an audio message"},
		}, nil
	}

	transcriber, err := e.providers.SpeechTranscriber(cfg.Provider)
	if err != nil {
		return result{}, unavailable(cfg.Provider, provider.CapabilityTranscription, err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	text, err := callProvider(ctx, e, p, node, e.policy.WithTimeout(timeout), cfg.Provider, provider.CapabilityTranscription,
		func(ctx context.Context) (string, error) {
			return transcriber.TranscribeSpeech(ctx, provider.TranscriptionRequest{
				Audio:    *in.Audio,
				Language: cfg.Language,
				Timeout:  timeout,
			})
		})
	if err != nil {
		return result{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return result{
			items:     prompt(p, node, cfg.Prompt),
			rejection: &domain.InputValidationError{NodeID: node.ID, Value: in.Audio.URL, Reason: "transcription is empty"},
		}, nil
	}

	res := result{handle: domain.HandleDefault}
	res.write(cfg.OutputVariableName, text)
	return res, nil
}
