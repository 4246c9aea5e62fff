package domain

// NodeConfig is the type-tagged configuration of a node.
// Exactly one implementation exists per NodeType.
type NodeConfig interface {
	NodeType() NodeType
}

// Text delivery modes.
const (
	ModeStatic = "static"
	ModeAuto   = "auto"
)

// Provider names understood by the provider registry.
const (
	ProviderOpenAI  = "openai"
	ProviderMinimax = "minimax"
)

// InputType constrains what an input node accepts.
type InputType string

const (
	InputText   InputType = "text"
	InputNumber InputType = "number"
	InputEmail  InputType = "email"
	InputPhone  InputType = "phone"
	InputDate   InputType = "date"
	InputOption InputType = "option"
)

// Action parameter kinds.
const (
	ParamText     = "text"
	ParamVariable = "variable"
	ParamNumber   = "number"
)

// StartConfig configures the entry node.
type StartConfig struct {
	WaitForResponse bool `json:"waitForResponse,omitempty" mapstructure:"waitForResponse"`
}

// TextConfig configures a message node.
type TextConfig struct {
	Message         string `json:"message" mapstructure:"message"`
	Mode            string `json:"mode" mapstructure:"mode"`
	DelayMs         uint   `json:"delayMs,omitempty" mapstructure:"delayMs"`
	WaitForResponse bool   `json:"waitForResponse,omitempty" mapstructure:"waitForResponse"`
}

// InputConfig configures an input-capture node.
type InputConfig struct {
	Prompt       string    `json:"prompt" mapstructure:"prompt"`
	VariableName string    `json:"variableName" mapstructure:"variableName"`
	InputType    InputType `json:"inputType" mapstructure:"inputType"`
	Options      []string  `json:"options,omitempty" mapstructure:"options"`
}

// ConditionalConfig configures a two-way branch.
type ConditionalConfig struct {
	Condition string `json:"condition" mapstructure:"condition"`
	DelayMs   uint   `json:"delayMs,omitempty" mapstructure:"delayMs"`
}

// AIConfig configures a text-generation node.
type AIConfig struct {
	Prompt               string  `json:"prompt" mapstructure:"prompt"`
	Mode                 string  `json:"mode" mapstructure:"mode"`
	Provider             string  `json:"provider" mapstructure:"provider"`
	Model                string  `json:"model,omitempty" mapstructure:"model"`
	Temperature          float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens            uint    `json:"maxTokens,omitempty" mapstructure:"maxTokens"`
	UseKnowledgeBase     bool    `json:"useKnowledgeBase,omitempty" mapstructure:"useKnowledgeBase"`
	KnowledgeBaseID      string  `json:"knowledgeBaseId,omitempty" mapstructure:"knowledgeBaseId"`
	DelayMs              uint    `json:"delayMs,omitempty" mapstructure:"delayMs"`
	ResponseVariableName string  `json:"responseVariableName,omitempty" mapstructure:"responseVariableName"`
	WaitForResponse      bool    `json:"waitForResponse,omitempty" mapstructure:"waitForResponse"`
}

// RouterConfig configures a cross-template jump.
type RouterConfig struct {
	TargetTemplateID string `json:"targetTemplateId" mapstructure:"targetTemplateId"`
	TargetNodeID     string `json:"targetNodeId,omitempty" mapstructure:"targetNodeId"`
}

// ActionParam is one argument passed to the action backend.
type ActionParam struct {
	Name  string `json:"name" mapstructure:"name"`
	Value any    `json:"value" mapstructure:"value"`
	Kind  string `json:"kind" mapstructure:"kind"`
}

// ActionConfig configures a backend operation.
type ActionConfig struct {
	ActionType         string        `json:"actionType" mapstructure:"actionType"`
	Params             []ActionParam `json:"params,omitempty" mapstructure:"params"`
	ResultVariableName string        `json:"resultVariableName,omitempty" mapstructure:"resultVariableName"`
}

// VoiceSettings are the synthesis knobs shared by tts and ai-voice-agent nodes.
type VoiceSettings struct {
	Voice   string  `json:"voice,omitempty" mapstructure:"voice"`
	Emotion string  `json:"emotion,omitempty" mapstructure:"emotion"`
	Speed   float64 `json:"speed" mapstructure:"speed"`
	Vol     float64 `json:"vol" mapstructure:"vol"`
	Pitch   int     `json:"pitch,omitempty" mapstructure:"pitch"`
}

// TTSConfig configures speech synthesis.
type TTSConfig struct {
	Text               string `json:"text,omitempty" mapstructure:"text"`
	VoiceSettings      `mapstructure:",squash"`
	Provider           string `json:"provider" mapstructure:"provider"`
	OutputVariableName string `json:"outputVariableName,omitempty" mapstructure:"outputVariableName"`

	// SourceIsAINode is derived by the loader from the incoming edges; it is never
	// authored by hand.
	SourceIsAINode bool `json:"sourceIsAINode,omitempty" mapstructure:"sourceIsAINode"`
}

// STTConfig configures audio capture and transcription.
type STTConfig struct {
	Prompt             string `json:"prompt" mapstructure:"prompt"`
	Provider           string `json:"provider" mapstructure:"provider"`
	Language           string `json:"language,omitempty" mapstructure:"language"`
	TimeoutSeconds     uint   `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	OutputVariableName string `json:"outputVariableName" mapstructure:"outputVariableName"`
}

// AIVoiceConfig is the union of AIConfig and the tts fields, executed atomically.
type AIVoiceConfig struct {
	AIConfig           `mapstructure:",squash"`
	VoiceSettings      `mapstructure:",squash"`
	VoiceProvider      string `json:"voiceProvider" mapstructure:"voiceProvider"`
	OutputVariableName string `json:"outputVariableName,omitempty" mapstructure:"outputVariableName"`
}

func (StartConfig) NodeType() NodeType       { return NodeTypeStart }
func (TextConfig) NodeType() NodeType        { return NodeTypeText }
func (InputConfig) NodeType() NodeType       { return NodeTypeInput }
func (ConditionalConfig) NodeType() NodeType { return NodeTypeConditional }
func (AIConfig) NodeType() NodeType          { return NodeTypeAI }
func (RouterConfig) NodeType() NodeType      { return NodeTypeRouter }
func (ActionConfig) NodeType() NodeType      { return NodeTypeAction }
func (TTSConfig) NodeType() NodeType         { return NodeTypeTTS }
func (STTConfig) NodeType() NodeType         { return NodeTypeSTT }
func (AIVoiceConfig) NodeType() NodeType     { return NodeTypeAIVoiceAgent }

// NewConfig returns a zero-valued config for the given type with loader defaults
// applied, or nil for an unknown type.
func NewConfig(t NodeType) NodeConfig {
	switch t {
	case NodeTypeStart:
		return &StartConfig{}
	case NodeTypeText:
		return &TextConfig{Mode: ModeAuto}
	case NodeTypeInput:
		return &InputConfig{InputType: InputText}
	case NodeTypeConditional:
		return &ConditionalConfig{}
	case NodeTypeAI:
		return &AIConfig{Mode: ModeAuto, Provider: ProviderOpenAI, Temperature: 0.7}
	case NodeTypeRouter:
		return &RouterConfig{}
	case NodeTypeAction:
		return &ActionConfig{}
	case NodeTypeTTS:
		return &TTSConfig{Provider: ProviderMinimax, VoiceSettings: VoiceSettings{Speed: 1, Vol: 1}}
	case NodeTypeSTT:
		return &STTConfig{Provider: ProviderOpenAI, TimeoutSeconds: 30}
	case NodeTypeAIVoiceAgent:
		return &AIVoiceConfig{
			AIConfig:      AIConfig{Mode: ModeAuto, Provider: ProviderOpenAI, Temperature: 0.7},
			VoiceSettings: VoiceSettings{Speed: 1, Vol: 1},
			VoiceProvider: ProviderMinimax,
		}
	}
	return nil
}
