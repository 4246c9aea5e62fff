package dsl

import "github.com/aretw0/chatflow/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

func (n *NodeBuilder) as(t domain.NodeType) domain.NodeConfig {
	if n.node.Type != t || n.node.Config == nil {
		n.node.Type = t
		n.node.Config = domain.NewConfig(t)
	}
	return n.node.Config
}

// Start marks the node as the entry point of the graph.
func (n *NodeBuilder) Start() *NodeBuilder {
	n.as(domain.NodeTypeStart)
	return n
}

// Text sets the message of the node and marks it as a text node (soft step).
func (n *NodeBuilder) Text(message string) *NodeBuilder {
	n.as(domain.NodeTypeText).(*domain.TextConfig).Message = message
	return n
}

// Input marks the node as a question (hard step) saving the answer to variable.
func (n *NodeBuilder) Input(prompt, variable string) *NodeBuilder {
	cfg := n.as(domain.NodeTypeInput).(*domain.InputConfig)
	cfg.Prompt = prompt
	cfg.VariableName = variable
	return n
}

// Accept constrains the answer of an input node.
func (n *NodeBuilder) Accept(inputType domain.InputType, options ...string) *NodeBuilder {
	cfg := n.as(domain.NodeTypeInput).(*domain.InputConfig)
	cfg.InputType = inputType
	cfg.Options = options
	return n
}

// Condition marks the node as a conditional branching on expr.
func (n *NodeBuilder) Condition(expr string) *NodeBuilder {
	n.as(domain.NodeTypeConditional).(*domain.ConditionalConfig).Condition = expr
	return n
}

// AI marks the node as a text generation step with the given prompt.
func (n *NodeBuilder) AI(prompt string) *NodeBuilder {
	n.as(domain.NodeTypeAI).(*domain.AIConfig).Prompt = prompt
	return n
}

// Router marks the node as a jump into another template. An empty nodeID
// enters the target at its start node.
func (n *NodeBuilder) Router(templateID, nodeID string) *NodeBuilder {
	cfg := n.as(domain.NodeTypeRouter).(*domain.RouterConfig)
	cfg.TargetTemplateID = templateID
	cfg.TargetNodeID = nodeID
	return n
}

// Action marks the node as a backend call whose result is stored in resultVar.
func (n *NodeBuilder) Action(actionType, resultVar string) *NodeBuilder {
	cfg := n.as(domain.NodeTypeAction).(*domain.ActionConfig)
	cfg.ActionType = actionType
	cfg.ResultVariableName = resultVar
	return n
}

// Param adds an argument to an action node.
func (n *NodeBuilder) Param(name string, value any, kind string) *NodeBuilder {
	cfg := n.as(domain.NodeTypeAction).(*domain.ActionConfig)
	cfg.Params = append(cfg.Params, domain.ActionParam{Name: name, Value: value, Kind: kind})
	return n
}

// Speak marks the node as speech synthesis of text.
func (n *NodeBuilder) Speak(text string) *NodeBuilder {
	n.as(domain.NodeTypeTTS).(*domain.TTSConfig).Text = text
	return n
}

// Listen marks the node as an audio prompt whose transcript is stored in variable.
func (n *NodeBuilder) Listen(prompt, variable string) *NodeBuilder {
	cfg := n.as(domain.NodeTypeSTT).(*domain.STTConfig)
	cfg.Prompt = prompt
	cfg.OutputVariableName = variable
	return n
}

// VoiceAgent marks the node as a generated and synthesized reply.
func (n *NodeBuilder) VoiceAgent(prompt string) *NodeBuilder {
	n.as(domain.NodeTypeAIVoiceAgent).(*domain.AIVoiceConfig).Prompt = prompt
	return n
}

// Configure gives direct access to the typed config for settings without a
// dedicated method. Call it after the method that sets the node type.
func (n *NodeBuilder) Configure(fn func(domain.NodeConfig)) *NodeBuilder {
	if n.node.Config != nil {
		fn(n.node.Config)
	}
	return n
}

// Wait makes a text or ai node pause for an answer after delivering.
func (n *NodeBuilder) Wait() *NodeBuilder {
	switch cfg := n.node.Config.(type) {
	case *domain.StartConfig:
		cfg.WaitForResponse = true
	case *domain.TextConfig:
		cfg.WaitForResponse = true
	case *domain.AIConfig:
		cfg.WaitForResponse = true
	case *domain.AIVoiceConfig:
		cfg.WaitForResponse = true
	}
	return n
}

// Go adds an unconditional transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, domain.HandleDefault, target)
	return n
}

// Then adds the transition taken when a conditional holds.
func (n *NodeBuilder) Then(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, domain.HandleTrue, target)
	return n
}

// Else adds the transition taken when a conditional does not hold.
func (n *NodeBuilder) Else(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, domain.HandleFalse, target)
	return n
}

// Error sets the target node for error handling.
func (n *NodeBuilder) Error(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, domain.HandleError, target)
	return n
}

// On adds a transition through an arbitrary handle, e.g. a router's "success".
func (n *NodeBuilder) On(handle string, target string) *NodeBuilder {
	n.builder.connect(n.node.ID, handle, target)
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
