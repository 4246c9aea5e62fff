package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromSession highlights the nodes a session went through.
func OverlayFromSession(s *domain.Session) *GraphOverlay {
	return &GraphOverlay{VisitedNodes: s.History, CurrentNode: s.CurrentNodeID}
}

// GenerateMermaid produces a Mermaid flowchart of g.
// It applies semantic styling:
// - Start: ((Circle))
// - Input and stt (waits for the user): [/Parallelogram/]
// - Conditional: {Rhombus}
// - Router: [[Subroutine]], with a dotted edge to the target template
// - AI, tts and ai-voice-agent (provider calls): {{Hexagon}}
// - Action: [(Cylinder)]
// - Default: [Rectangle]
// Edges carry their handle as label. Overlay styles are applied if provided.
func GenerateMermaid(g *domain.FlowGraph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range g.Nodes {
		safeID := sanitizeMermaidID(node.ID)
		opener, closer := shape(node.Type)

		label := node.ID
		if cfg, ok := node.Config.(*domain.ConditionalConfig); ok && cfg.Condition != "" {
			label = fmt.Sprintf("%s <br/> %s", node.ID, escape(cfg.Condition))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		if cfg, ok := node.Config.(*domain.RouterConfig); ok {
			target := "template_" + sanitizeMermaidID(cfg.TargetTemplateID)
			name := cfg.TargetTemplateID
			if cfg.TargetNodeID != "" {
				name += "#" + cfg.TargetNodeID
			}
			fmt.Fprintf(&sb, "    %s -.-> %s>\"%s\"]\n", safeID, target, escape(name))
		}
	}

	for _, e := range g.Edges {
		from, to := sanitizeMermaidID(e.SourceNodeID), sanitizeMermaidID(e.TargetNodeID)
		switch handle := e.Handle(); handle {
		case domain.HandleDefault:
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
		case domain.HandleError:
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, handle, to)
		default:
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, escape(handle), to)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			// History spans router jumps; only style nodes of this graph.
			if _, ok := g.Node(id); !ok {
				continue
			}
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if _, ok := g.Node(overlay.CurrentNode); ok {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTypeStart:
		return "((", "))"
	case domain.NodeTypeInput, domain.NodeTypeSTT:
		return "[/", "/]"
	case domain.NodeTypeConditional:
		return "{", "}"
	case domain.NodeTypeRouter:
		return "[[", "]]"
	case domain.NodeTypeAI, domain.NodeTypeTTS, domain.NodeTypeAIVoiceAgent:
		return "{{", "}}"
	case domain.NodeTypeAction:
		return "[(", ")]"
	default:
		return "[", "]"
	}
}

// escape replaces double quotes, which would end a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
