package domain

// DeliveryKind tags a DeliveryItem.
type DeliveryKind string

const (
	DeliveryText  DeliveryKind = "text"
	DeliveryAudio DeliveryKind = "audio"
)

// AudioRef points at an audio artifact produced or received by the channel.
type AudioRef struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
}

// DeliveryItem is one output the conversation channel must deliver to the user.
// DelayMs is a scheduling hint for the channel; the interpreter never sleeps.
type DeliveryItem struct {
	Kind    DeliveryKind `json:"kind"`
	NodeID  string       `json:"node_id"`
	Text    string       `json:"text,omitempty"`
	Audio   *AudioRef    `json:"audio,omitempty"`
	DelayMs uint         `json:"delay_ms,omitempty"`
}

// TextItem builds a text delivery.
func TextItem(nodeID, text string, delayMs uint) DeliveryItem {
	return DeliveryItem{Kind: DeliveryText, NodeID: nodeID, Text: text, DelayMs: delayMs}
}

// AudioItem builds an audio delivery.
func AudioItem(nodeID string, ref AudioRef, delayMs uint) DeliveryItem {
	return DeliveryItem{Kind: DeliveryAudio, NodeID: nodeID, Audio: &ref, DelayMs: delayMs}
}

// Inbound is the value a user sends to resume a suspended session.
// Input nodes read Text; stt nodes require Audio.
type Inbound struct {
	Text  string    `json:"text,omitempty"`
	Audio *AudioRef `json:"audio,omitempty"`
}

// TextInput wraps a text answer.
func TextInput(s string) Inbound { return Inbound{Text: s} }

// AudioInput wraps an audio answer.
func AudioInput(ref AudioRef) Inbound { return Inbound{Audio: &ref} }
