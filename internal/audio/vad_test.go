package audio

import (
	"testing"
)

func constantFrame(n int, value int16) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func TestVADDetector_ProcessFrame_Speech(t *testing.T) {
	vad := NewVADDetector(NewVADConfig(500, 10, 8000))
	samples := constantFrame(160, 5000)

	for i := 0; i < 5; i++ {
		isSpeaking, speechStarted, _ := vad.ProcessFrame(samples)
		if !isSpeaking {
			t.Errorf("Expected speech detection on frame %d", i)
		}
		if i == 0 && !speechStarted {
			t.Error("Expected speech to start on first frame")
		}
		if i > 0 && speechStarted {
			t.Errorf("Expected speech start only once, got it on frame %d", i)
		}
	}
}

func TestVADDetector_ProcessFrame_Silence(t *testing.T) {
	vad := NewVADDetector(NewVADConfig(500, 10, 8000))
	samples := constantFrame(160, 10)

	for i := 0; i < 15; i++ {
		if isSpeaking, _, ended := vad.ProcessFrame(samples); isSpeaking || ended {
			t.Errorf("Expected silence on frame %d", i)
		}
	}
}

func TestVADDetector_SpeechToSilence(t *testing.T) {
	vad := NewVADDetector(NewVADConfig(500, 10, 8000))
	high := constantFrame(160, 5000)
	low := constantFrame(160, 10)

	for i := 0; i < 5; i++ {
		vad.ProcessFrame(high)
	}

	endedAt := -1
	for i := 0; i < 15; i++ {
		if _, _, ended := vad.ProcessFrame(low); ended {
			endedAt = i
			break
		}
	}
	if endedAt != 9 {
		t.Errorf("Expected speech to end on the 10th silent frame, got index %d", endedAt)
	}
	if vad.isSpeaking {
		t.Error("Expected speech state to be false after the segment ended")
	}
}

func TestVADDetector_ProcessSplitsFrames(t *testing.T) {
	config := NewVADConfig(500, 2, 16000)
	if config.FrameSize != 320 {
		t.Fatalf("Expected 20ms frames of 320 samples, got %d", config.FrameSize)
	}
	vad := NewVADDetector(config)

	// Half a frame produces nothing until the rest arrives
	if events := vad.Process(constantFrame(160, 5000)); len(events) != 0 {
		t.Errorf("Expected no events for a partial frame, got %v", events)
	}
	events := vad.Process(constantFrame(160, 5000))
	if len(events) != 1 || events[0] != SpeechStarted {
		t.Errorf("Expected SpeechStarted, got %v", events)
	}

	events = vad.Process(constantFrame(640, 0))
	if len(events) != 1 || events[0] != SpeechEnded {
		t.Errorf("Expected SpeechEnded after two silent frames, got %v", events)
	}
}

func TestVADDetector_Threshold(t *testing.T) {
	low := NewVADDetector(NewVADConfig(100, 10, 8000))
	high := NewVADDetector(NewVADConfig(5000, 10, 8000))
	samples := constantFrame(160, 1000)

	if isSpeaking, _, _ := low.ProcessFrame(samples); !isSpeaking {
		t.Error("Expected low threshold to detect speech")
	}
	if isSpeaking, _, _ := high.ProcessFrame(samples); isSpeaking {
		t.Error("Expected high threshold to not detect speech")
	}
}

func TestVADDetector_Reset(t *testing.T) {
	vad := NewVADDetector(nil)
	vad.Process(constantFrame(400, 5000))

	if !vad.isSpeaking {
		t.Fatal("Expected speech to be detected")
	}

	vad.Reset()
	if vad.isSpeaking {
		t.Error("Expected speech state to be false after reset")
	}
	if len(vad.pending) != 0 {
		t.Error("Expected pending samples to be dropped on reset")
	}
}

func TestDefaultVADConfig(t *testing.T) {
	config := DefaultVADConfig()
	if config.EnergyThreshold != 500.0 {
		t.Errorf("Expected default EnergyThreshold 500.0, got %f", config.EnergyThreshold)
	}
	if config.SilenceFrames != 10 {
		t.Errorf("Expected default SilenceFrames 10, got %d", config.SilenceFrames)
	}
	if config.FrameSize != 320 {
		t.Errorf("Expected default FrameSize 320, got %d", config.FrameSize)
	}
}
