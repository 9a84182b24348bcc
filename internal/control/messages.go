package control

// Inbound message types sent by the host over the control socket
const (
	MessageUpdate      = "update"
	MessageStart       = "start"
	MessageStop        = "stop"
	MessageToggle      = "toggle"
	MessageAudio       = "audio"
	MessageAudioFormat = "audio_format"
)

// Outbound message types
const (
	MessageReady   = "ready"
	MessageOutputs = "outputs"
	MessageError   = "error"
)

// InboundMessage is a JSON text frame from the host. Raw audio may also be
// sent as binary frames in the current audio format.
type InboundMessage struct {
	Type string `json:"type"`

	// update
	Properties map[string]any `json:"properties,omitempty"`
	Width      *int           `json:"width,omitempty"`
	Height     *int           `json:"height,omitempty"`

	// audio_format
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`

	// audio
	Payload string `json:"payload,omitempty"` // Base64 encoded audio
}

// OutboundMessage is a JSON text frame sent to the host
type OutboundMessage struct {
	Type      string            `json:"type"`
	ControlID string            `json:"controlId,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	Button    string            `json:"button,omitempty"`
	Command   string            `json:"command,omitempty"`
	Error     string            `json:"error,omitempty"`
}
