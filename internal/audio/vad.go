package audio

// VADConfig holds configuration for energy-based voice activity detection
type VADConfig struct {
	EnergyThreshold float64 // RMS energy above which a frame counts as speech
	SilenceFrames   int     // Consecutive silent frames that end a segment
	FrameSize       int     // Samples per analysis frame
}

// DefaultVADConfig returns 20ms frames at 16kHz
func DefaultVADConfig() *VADConfig {
	return NewVADConfig(500.0, 10, 16000)
}

// NewVADConfig returns a config with 20ms frames at sampleRate
func NewVADConfig(threshold float64, silenceFrames, sampleRate int) *VADConfig {
	frame := sampleRate / 50
	if frame <= 0 {
		frame = 320
	}
	return &VADConfig{
		EnergyThreshold: threshold,
		SilenceFrames:   silenceFrames,
		FrameSize:       frame,
	}
}

// VADEvent is a speech segment boundary
type VADEvent int

const (
	SpeechStarted VADEvent = iota + 1
	SpeechEnded
)

// VADDetector tracks speech segments across frames. It is not safe for
// concurrent use.
type VADDetector struct {
	config         *VADConfig
	pending        []int16
	silenceCounter int
	isSpeaking     bool
}

// NewVADDetector creates a new VAD detector
func NewVADDetector(config *VADConfig) *VADDetector {
	if config == nil {
		config = DefaultVADConfig()
	}
	return &VADDetector{config: config}
}

// ProcessFrame classifies one frame.
// Returns: (isSpeaking, speechStarted, speechEnded)
func (v *VADDetector) ProcessFrame(samples []int16) (bool, bool, bool) {
	var started, ended bool

	if CalculateRMS(samples) > v.config.EnergyThreshold {
		v.silenceCounter = 0
		if !v.isSpeaking {
			started = true
			v.isSpeaking = true
		}
	} else {
		v.silenceCounter++
		if v.isSpeaking && v.silenceCounter >= v.config.SilenceFrames {
			ended = true
			v.isSpeaking = false
			v.silenceCounter = 0
		}
	}

	return v.isSpeaking, started, ended
}

// Process splits samples into frames, carrying any remainder into the next
// call, and returns the segment boundaries found.
func (v *VADDetector) Process(samples []int16) []VADEvent {
	v.pending = append(v.pending, samples...)

	var events []VADEvent
	size := v.config.FrameSize
	for len(v.pending) >= size {
		_, started, ended := v.ProcessFrame(v.pending[:size])
		if started {
			events = append(events, SpeechStarted)
		}
		if ended {
			events = append(events, SpeechEnded)
		}
		v.pending = v.pending[size:]
	}
	v.pending = append([]int16(nil), v.pending...)
	return events
}

// Reset resets the VAD detector state
func (v *VADDetector) Reset() {
	v.pending = nil
	v.silenceCounter = 0
	v.isSpeaking = false
}
