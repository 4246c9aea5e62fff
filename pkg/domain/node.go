package domain

// NodeType identifies the behavior of a node in a flow graph.
type NodeType string

// Canonical node types. The set is closed: the graph loader rejects anything else
// that is not listed in the alias table.
const (
	// NodeTypeStart is the single entry point of a graph.
	NodeTypeStart NodeType = "start"
	// NodeTypeText delivers a message (soft step unless waitForResponse is set).
	NodeTypeText NodeType = "text"
	// NodeTypeInput prompts the user and captures a typed answer (hard step).
	NodeTypeInput NodeType = "input"
	// NodeTypeConditional branches on a boolean expression.
	NodeTypeConditional NodeType = "conditional"
	// NodeTypeAI generates a reply with a text provider.
	NodeTypeAI NodeType = "ai"
	// NodeTypeRouter jumps into another published template.
	NodeTypeRouter NodeType = "router"
	// NodeTypeAction invokes a backend operation.
	NodeTypeAction NodeType = "action"
	// NodeTypeTTS synthesizes speech.
	NodeTypeTTS NodeType = "tts"
	// NodeTypeSTT prompts for audio and transcribes the answer.
	NodeTypeSTT NodeType = "stt"
	// NodeTypeAIVoiceAgent generates a reply and synthesizes it in one step.
	NodeTypeAIVoiceAgent NodeType = "ai-voice-agent"
)

// nodeTypeAliases maps legacy builder names to canonical types.
var nodeTypeAliases = map[string]NodeType{
	"message":        NodeTypeText,
	"capture":        NodeTypeInput,
	"condition":      NodeTypeConditional,
	"ai_response":    NodeTypeAI,
	"speech-to-text": NodeTypeSTT,
	"text-to-speech": NodeTypeTTS,
	"ai_voice_agent": NodeTypeAIVoiceAgent,
}

var canonicalNodeTypes = map[NodeType]struct{}{
	NodeTypeStart:        {},
	NodeTypeText:         {},
	NodeTypeInput:        {},
	NodeTypeConditional:  {},
	NodeTypeAI:           {},
	NodeTypeRouter:       {},
	NodeTypeAction:       {},
	NodeTypeTTS:          {},
	NodeTypeSTT:          {},
	NodeTypeAIVoiceAgent: {},
}

// NormalizeNodeType resolves a raw type name (canonical or legacy alias) to its
// canonical NodeType. The boolean is false for unknown names.
func NormalizeNodeType(raw string) (NodeType, bool) {
	if _, ok := canonicalNodeTypes[NodeType(raw)]; ok {
		return NodeType(raw), true
	}
	if t, ok := nodeTypeAliases[raw]; ok {
		return t, true
	}
	return "", false
}

// Edge handle names.
const (
	HandleDefault = "default"
	HandleTrue    = "true"
	HandleFalse   = "false"
	HandleSuccess = "success"
	HandleError   = "error"
)

// Position is layout-only data kept for lossless round-trips.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a typed vertex of a FlowGraph.
// Config always holds a pointer to the variant matching Type (*TextConfig, ...).
type Node struct {
	ID       string
	Type     NodeType
	Config   NodeConfig
	Position *Position
}

// Edge connects two nodes. SourceHandle is empty for the default output.
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	SourceNodeID string `json:"sourceNodeId" yaml:"sourceNodeId"`
	TargetNodeID string `json:"targetNodeId" yaml:"targetNodeId"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
}

// Handle returns the effective handle name, mapping empty to HandleDefault.
func (e Edge) Handle() string {
	if e.SourceHandle == "" {
		return HandleDefault
	}
	return e.SourceHandle
}
