package graph

import (
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
)

// allowedHandles lists the outgoing handles each node type may use.
var allowedHandles = map[domain.NodeType][]string{
	domain.NodeTypeStart:        {domain.HandleDefault},
	domain.NodeTypeText:         {domain.HandleDefault},
	domain.NodeTypeInput:        {domain.HandleDefault},
	domain.NodeTypeConditional:  {domain.HandleTrue, domain.HandleFalse},
	domain.NodeTypeRouter:       {domain.HandleSuccess, domain.HandleError},
	domain.NodeTypeAI:           {domain.HandleDefault, domain.HandleError},
	domain.NodeTypeAIVoiceAgent: {domain.HandleDefault, domain.HandleError},
	domain.NodeTypeAction:       {domain.HandleDefault, domain.HandleError},
	domain.NodeTypeTTS:          {domain.HandleDefault, domain.HandleError},
	domain.NodeTypeSTT:          {domain.HandleDefault, domain.HandleError},
}

// singleEdgeTypes may not fan out through the same handle twice.
var singleEdgeTypes = map[domain.NodeType]bool{
	domain.NodeTypeConditional: true,
	domain.NodeTypeRouter:      true,
}

var (
	textProviders  = []string{domain.ProviderOpenAI, domain.ProviderMinimax}
	voiceProviders = []string{domain.ProviderMinimax}
	sttProviders   = []string{domain.ProviderOpenAI}
	modes          = []string{domain.ModeStatic, domain.ModeAuto}
	inputTypes     = []domain.InputType{
		domain.InputText, domain.InputNumber, domain.InputEmail,
		domain.InputPhone, domain.InputDate, domain.InputOption,
	}
)

// Validate checks an already built graph and returns every violation found.
func Validate(g *domain.FlowGraph) error {
	v := &validator{}
	v.checkGraph(g)
	return v.err()
}

type validator struct {
	violations []domain.Violation

	// rejected holds ids of nodes dropped while resolving, so edges pointing at
	// them are not reported a second time as dangling.
	rejected map[string]bool
}

func (v *validator) known(g *domain.FlowGraph, id string) bool {
	if _, ok := g.Node(id); ok {
		return true
	}
	return v.rejected[id]
}

func (v *validator) add(violation domain.Violation) {
	v.violations = append(v.violations, violation)
}

func (v *validator) err() error {
	if len(v.violations) == 0 {
		return nil
	}
	return &domain.GraphValidationError{Violations: v.violations}
}

func (v *validator) checkGraph(g *domain.FlowGraph) {
	seen := make(map[string]bool, len(g.Nodes))
	starts := 0

	for _, n := range g.Nodes {
		if seen[n.ID] {
			v.add(domain.Violation{NodeID: n.ID, Field: "id", Reason: "duplicate node id"})
		}
		seen[n.ID] = true

		if n.Type == domain.NodeTypeStart {
			starts++
			if starts > 1 {
				v.add(domain.Violation{NodeID: n.ID, Field: "type", Reason: "duplicate start node"})
			}
		}

		if n.Config == nil || n.Config.NodeType() != n.Type {
			v.add(domain.Violation{NodeID: n.ID, Field: "config", Reason: fmt.Sprintf("config does not match type %q", n.Type)})
			continue
		}
		v.checkConfig(n)
	}

	if starts == 0 {
		v.add(domain.Violation{Reason: "missing start node"})
	}

	v.checkEdges(g)
}

func (v *validator) checkEdges(g *domain.FlowGraph) {
	edgeIDs := make(map[string]bool, len(g.Edges))
	used := make(map[string]string)

	for _, e := range g.Edges {
		if edgeIDs[e.ID] {
			v.add(domain.Violation{EdgeID: e.ID, Field: "id", Reason: "duplicate edge id"})
		}
		edgeIDs[e.ID] = true

		if !v.known(g, e.TargetNodeID) {
			v.add(domain.Violation{EdgeID: e.ID, Field: "targetNodeId", Reason: fmt.Sprintf("references unknown node %q", e.TargetNodeID)})
		}

		src, ok := g.Node(e.SourceNodeID)
		if !ok {
			if v.rejected[e.SourceNodeID] {
				continue
			}
			v.add(domain.Violation{EdgeID: e.ID, Field: "sourceNodeId", Reason: fmt.Sprintf("references unknown node %q", e.SourceNodeID)})
			continue
		}

		handle := e.Handle()
		if !contains(allowedHandles[src.Type], handle) {
			v.add(domain.Violation{
				EdgeID: e.ID,
				NodeID: src.ID,
				Field:  "sourceHandle",
				Reason: fmt.Sprintf("handle %q is not valid for %s nodes", handle, src.Type),
			})
			continue
		}

		if singleEdgeTypes[src.Type] {
			key := src.ID + "\x00" + handle
			if prev, dup := used[key]; dup {
				v.add(domain.Violation{
					EdgeID: e.ID,
					NodeID: src.ID,
					Field:  "sourceHandle",
					Reason: fmt.Sprintf("handle %q already used by edge %q", handle, prev),
				})
			}
			used[key] = e.ID
		}
	}
}

func (v *validator) checkConfig(n domain.Node) {
	required := func(field, value string) {
		if value == "" {
			v.add(domain.Violation{NodeID: n.ID, Field: field, Reason: "required"})
		}
	}
	oneOf := func(field, value string, allowed []string) {
		if !contains(allowed, value) {
			v.add(domain.Violation{NodeID: n.ID, Field: field, Reason: fmt.Sprintf("unknown value %q", value)})
		}
	}
	temperature := func(t float64) {
		if t < 0 || t > 1 {
			v.add(domain.Violation{NodeID: n.ID, Field: "temperature", Reason: fmt.Sprintf("%v is outside [0,1]", t)})
		}
	}

	switch cfg := n.Config.(type) {
	case *domain.TextConfig:
		oneOf("mode", cfg.Mode, modes)
	case *domain.InputConfig:
		required("variableName", cfg.VariableName)
		if !contains(inputTypes, cfg.InputType) {
			v.add(domain.Violation{NodeID: n.ID, Field: "inputType", Reason: fmt.Sprintf("unknown value %q", cfg.InputType)})
		}
		if cfg.InputType == domain.InputOption && len(cfg.Options) == 0 {
			v.add(domain.Violation{NodeID: n.ID, Field: "options", Reason: "option input needs at least one option"})
		}
	case *domain.AIConfig:
		oneOf("mode", cfg.Mode, modes)
		oneOf("provider", cfg.Provider, textProviders)
		temperature(cfg.Temperature)
	case *domain.RouterConfig:
		required("targetTemplateId", cfg.TargetTemplateID)
	case *domain.ActionConfig:
		required("actionType", cfg.ActionType)
		for i, p := range cfg.Params {
			if p.Name == "" {
				v.add(domain.Violation{NodeID: n.ID, Field: fmt.Sprintf("params[%d].name", i), Reason: "required"})
			}
			if p.Kind != "" {
				oneOf(fmt.Sprintf("params[%d].kind", i), p.Kind, []string{domain.ParamText, domain.ParamVariable, domain.ParamNumber})
			}
		}
	case *domain.TTSConfig:
		oneOf("provider", cfg.Provider, voiceProviders)
	case *domain.STTConfig:
		required("outputVariableName", cfg.OutputVariableName)
		oneOf("provider", cfg.Provider, sttProviders)
	case *domain.AIVoiceConfig:
		oneOf("mode", cfg.Mode, modes)
		oneOf("provider", cfg.Provider, textProviders)
		oneOf("voiceProvider", cfg.VoiceProvider, voiceProviders)
		temperature(cfg.Temperature)
	}
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
